package fiuu

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

func TestPrecreateSendsFormAndDecodes(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"imageUrl":"https://img/qr.png","molTransactionId":987654,"statusCode":"00","amount":"10.00","currencyCode":"MYR"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second)
	req := PrecreateRequest{Amount: "10.00", ApplicationCode: "APP1", ReferenceID: "REF1"}
	resp, err := gw.Precreate(context.Background(), req.Form("sig"))
	require.NoError(t, err)

	assert.Equal(t, "https://img/qr.png", resp.ImageURL)
	assert.Equal(t, "987654", resp.TransactionID.String())
	assert.Equal(t, "00", resp.StatusCode.String())
	assert.Equal(t, "sig", gotForm["signature"])
	assert.Equal(t, "REF1", gotForm["referenceId"])
}

func TestPrecreateNon200IsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid signature"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, time.Second).Precreate(context.Background(), nil)
	require.ErrorIs(t, err, apperr.ErrUpstream)

	var ue *apperr.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.Contains(t, ue.Detail, "invalid signature")
}

func TestPrecreateInvalidJSONIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, time.Second).Precreate(context.Background(), nil)
	require.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestPrecreateTimeoutIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewHTTPGateway(srv.URL, 20*time.Millisecond).Precreate(context.Background(), nil)
	require.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestFetchImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second)
	img, err := gw.FetchImage(context.Background(), srv.URL+"/qr.png")
	require.NoError(t, err)
	assert.Equal(t, png, img.Data)
	assert.Equal(t, "image/png", img.ContentType)

	_, err = gw.FetchImage(context.Background(), srv.URL+"/missing.png")
	assert.ErrorIs(t, err, apperr.ErrUpstream)

	_, err = gw.FetchImage(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}
