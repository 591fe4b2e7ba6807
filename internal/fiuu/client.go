package fiuu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

const (
	// DefaultPrecreateURL is the production OPA precreate endpoint.
	DefaultPrecreateURL = "https://opa.fiuu.com/RMS/API/MOLOPA/precreate.php"
	defaultTimeout      = 10 * time.Second
	maxDetailBytes      = 2 << 10
	maxImageBytes       = 8 << 20
)

// Gateway is the subset of the Fiuu OPA API used to create QR payments.
type Gateway interface {
	Precreate(ctx context.Context, form url.Values) (PrecreateResponse, error)
	FetchImage(ctx context.Context, imageURL string) (Image, error)
}

// Image is a rendered QR code returned by the gateway.
type Image struct {
	Data        []byte
	ContentType string
}

// HTTPGateway implements Gateway over HTTP with a bounded per-call timeout.
type HTTPGateway struct {
	precreateURL string
	http         *http.Client
}

// NewHTTPGateway constructs a gateway client. Empty url and non-positive timeout fall back to defaults.
func NewHTTPGateway(precreateURL string, timeout time.Duration) *HTTPGateway {
	if strings.TrimSpace(precreateURL) == "" {
		precreateURL = DefaultPrecreateURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGateway{
		precreateURL: precreateURL,
		http:         &http.Client{Timeout: timeout},
	}
}

// Precreate posts the signed form and decodes the gateway reply. It is never retried.
func (g *HTTPGateway) Precreate(ctx context.Context, form url.Values) (PrecreateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.precreateURL, strings.NewReader(form.Encode()))
	if err != nil {
		return PrecreateResponse{}, fmt.Errorf("build precreate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return PrecreateResponse{}, transportError("precreate", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return PrecreateResponse{}, transportError("precreate", err)
	}
	if resp.StatusCode != http.StatusOK {
		return PrecreateResponse{}, &apperr.UpstreamError{Status: resp.StatusCode, Detail: truncate(body)}
	}

	var out PrecreateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PrecreateResponse{}, &apperr.UpstreamError{
			Status: resp.StatusCode,
			Detail: "invalid JSON response: " + truncate(body),
		}
	}
	return out, nil
}

// FetchImage downloads the QR image the gateway rendered.
func (g *HTTPGateway) FetchImage(ctx context.Context, imageURL string) (Image, error) {
	if strings.TrimSpace(imageURL) == "" {
		return Image{}, &apperr.UpstreamError{Status: http.StatusOK, Detail: "response has no imageUrl"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, &apperr.UpstreamError{Detail: "invalid imageUrl: " + err.Error()}
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return Image{}, transportError("fetch image", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return Image{}, transportError("fetch image", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Image{}, &apperr.UpstreamError{Status: resp.StatusCode, Detail: "fetch image: " + truncate(data)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = "image/png"
	}
	return Image{Data: data, ContentType: contentType}, nil
}

func transportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &apperr.UpstreamError{Detail: fmt.Sprintf("%s: %v", op, err)}
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailBytes {
		return s[:maxDetailBytes] + "..."
	}
	return s
}
