package qr

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/nextmachines/fiuupay/internal/apperr"
    "github.com/nextmachines/fiuupay/internal/device"
    "github.com/nextmachines/fiuupay/internal/fiuu"
    "github.com/nextmachines/fiuupay/internal/logging"
    "github.com/nextmachines/fiuupay/internal/notification"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// fakeGateway checks signatures with the secret registered for each
// application code and answers like the precreate endpoint.
type fakeGateway struct {
    mu      sync.Mutex
    secrets map[string]string
    status  int
    body    string
    forms   []map[string]string
    srv     *httptest.Server
}

func newFakeGateway(t *testing.T, secrets map[string]string) *fakeGateway {
    t.Helper()
    g := &fakeGateway{secrets: secrets, status: http.StatusOK}
    g.srv = httptest.NewServer(http.HandlerFunc(g.serve))
    t.Cleanup(g.srv.Close)
    return g
}

func (g *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path == "/qr.png" {
        w.Header().Set("Content-Type", "image/png")
        _, _ = w.Write(pngBytes)
        return
    }
    if err := r.ParseForm(); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    fields := map[string]string{}
    for k := range r.PostForm {
        fields[k] = r.PostForm.Get(k)
    }

    g.mu.Lock()
    g.forms = append(g.forms, fields)
    status, body := g.status, g.body
    g.mu.Unlock()

    if status != http.StatusOK {
        w.WriteHeader(status)
        _, _ = w.Write([]byte(body))
        return
    }
    secret, ok := g.secrets[fields[fiuu.FieldApplicationCode]]
    if !ok || !fiuu.Verify(fields, []byte(secret), fields[fiuu.FieldSignature]) {
        w.WriteHeader(http.StatusUnauthorized)
        _, _ = w.Write([]byte(`{"error":"invalid signature"}`))
        return
    }
    if body != "" {
        _, _ = w.Write([]byte(body))
        return
    }
    _ = json.NewEncoder(w).Encode(map[string]any{
        "imageUrl":         g.srv.URL + "/qr.png",
        "molTransactionId": 123456789,
        "statusCode":       "00",
        "amount":           fields[fiuu.FieldAmount],
        "currencyCode":     fields[fiuu.FieldCurrencyCode],
    })
}

func (g *fakeGateway) respond(status int, body string) {
    g.mu.Lock()
    defer g.mu.Unlock()
    g.status, g.body = status, body
}

func (g *fakeGateway) lastForm() map[string]string {
    g.mu.Lock()
    defer g.mu.Unlock()
    if len(g.forms) == 0 {
        return nil
    }
    return g.forms[len(g.forms)-1]
}

type testNotifier struct {
    last notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
    n.last = msg
    return nil
}

func testProfile() Profile {
    return Profile{StoreID: "nextmachines01", TerminalID: "1", ChannelID: "24", Currency: "MYR", Version: "V3"}
}

func newTestService(t *testing.T, gw *fakeGateway, merchant device.Credentials, devices CredentialSource) (*Service, Repository, *testNotifier) {
    t.Helper()
    repo := NewMemoryRepository()
    notifier := &testNotifier{}
    svc := NewService(repo, devices, fiuu.NewHTTPGateway(gw.srv.URL+"/precreate.php", time.Second), Options{
        Merchant: merchant,
        Profile:  testProfile(),
        Notifier: notifier,
    })
    return svc, repo, notifier
}

func TestGenerateSignsAndReturnsImage(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"APP1": "merchant-secret"})
    svc, repo, notifier := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1", SecretKey: "merchant-secret"}, nil)

    userID := uuid.NewString()
    img, err := svc.Generate(context.Background(), GenerateInput{UserID: userID, Amount: 10})
    if err != nil {
        t.Fatalf("generate: %v", err)
    }
    if string(img.Data) != string(pngBytes) || img.ContentType != "image/png" {
        t.Fatalf("unexpected image %q (%s)", img.Data, img.ContentType)
    }

    form := gw.lastForm()
    if form[fiuu.FieldAmount] != "10.00" {
        t.Fatalf("expected amount 10.00, got %q", form[fiuu.FieldAmount])
    }
    for name, want := range map[string]string{
        fiuu.FieldVersion:      "V3",
        fiuu.FieldChannelID:    "24",
        fiuu.FieldCurrencyCode: "MYR",
        fiuu.FieldStoreID:      "nextmachines01",
        fiuu.FieldTerminalID:   "1",
        fiuu.FieldHashType:     "hmac-sha256",
    } {
        if form[name] != want {
            t.Fatalf("expected %s=%q, got %q", name, want, form[name])
        }
    }
    if !strings.HasPrefix(form[fiuu.FieldReferenceID], "REF") || img.Link.ReferenceID != form[fiuu.FieldReferenceID] {
        t.Fatalf("reference id not propagated: form=%q link=%q", form[fiuu.FieldReferenceID], img.Link.ReferenceID)
    }

    history, err := repo.ListByUser(context.Background(), userID, 10)
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(history) != 1 || history[0].GatewayTransactionID != "123456789" || history[0].GatewayStatus != "00" {
        t.Fatalf("unexpected payment record %+v", history)
    }
    if notifier.last.Kind != notification.KindQRGenerated {
        t.Fatalf("expected qr_generated notification")
    }
}

func TestGenerateLinkUsesDeviceCredentials(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"DEV-APP": "device-secret"})
    devices := device.NewService(device.NewMemoryRepository(), nil, nil)
    svc, _, _ := newTestService(t, gw, device.Credentials{}, devices)

    ctx := context.Background()
    userID := uuid.NewString()
    d, err := devices.Add(ctx, userID, device.AddInput{Name: "till", ApplicationCode: "DEV-APP", SecretKey: "device-secret"})
    if err != nil {
        t.Fatalf("add device: %v", err)
    }

    link, err := svc.GenerateLink(ctx, GenerateInput{UserID: userID, DeviceID: d.ID, Amount: 12.5})
    if err != nil {
        t.Fatalf("generate link: %v", err)
    }
    if link.Amount != "12.50" || link.Currency != "MYR" || link.TransactionID != "123456789" {
        t.Fatalf("unexpected link %+v", link)
    }

    if _, err := svc.GenerateLink(ctx, GenerateInput{UserID: uuid.NewString(), DeviceID: d.ID, Amount: 1}); !errors.Is(err, apperr.ErrNotFound) {
        t.Fatalf("expected not found for foreign device, got %v", err)
    }
}

func TestGenerateRejectsBadAmount(t *testing.T) {
    gw := newFakeGateway(t, nil)
    svc, _, _ := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1", SecretKey: "s"}, nil)

    for _, amount := range []float64{0, -5} {
        if _, err := svc.Generate(context.Background(), GenerateInput{UserID: uuid.NewString(), Amount: amount}); !errors.Is(err, apperr.ErrValidation) {
            t.Fatalf("expected validation error for %v, got %v", amount, err)
        }
    }
    if gw.lastForm() != nil {
        t.Fatalf("gateway must not be called for invalid amounts")
    }
}

func TestGenerateMissingCredentials(t *testing.T) {
    gw := newFakeGateway(t, nil)
    svc, _, _ := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1"}, nil)

    _, err := svc.Generate(context.Background(), GenerateInput{UserID: uuid.NewString(), Amount: 1})
    if !errors.Is(err, apperr.ErrMisconfiguration) {
        t.Fatalf("expected misconfiguration, got %v", err)
    }
    if apperr.Status(err) != http.StatusInternalServerError {
        t.Fatalf("expected 500 mapping, got %d", apperr.Status(err))
    }
}

func TestGenerateUpstreamFailures(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"APP1": "s"})
    svc, repo, _ := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1", SecretKey: "s"}, nil)
    userID := uuid.NewString()

    gw.respond(http.StatusBadGateway, "upstream down")
    _, err := svc.Generate(context.Background(), GenerateInput{UserID: userID, Amount: 1})
    var ue *apperr.UpstreamError
    if !errors.As(err, &ue) || ue.Status != http.StatusBadGateway || ue.Detail != "upstream down" {
        t.Fatalf("expected upstream error with detail, got %v", err)
    }

    gw.respond(http.StatusOK, "not json")
    if _, err := svc.GenerateLink(context.Background(), GenerateInput{UserID: userID, Amount: 1}); !errors.Is(err, apperr.ErrUpstream) {
        t.Fatalf("expected upstream error for invalid JSON, got %v", err)
    }

    history, _ := repo.ListByUser(context.Background(), userID, 10)
    if len(history) != 0 {
        t.Fatalf("failed precreates must not be recorded, got %d", len(history))
    }
}

func TestGenerateWrongSecretRejectedByGateway(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"APP1": "right"})
    svc, _, _ := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1", SecretKey: "wrong"}, nil)

    _, err := svc.Generate(context.Background(), GenerateInput{UserID: uuid.NewString(), Amount: 1})
    var ue *apperr.UpstreamError
    if !errors.As(err, &ue) || ue.Status != http.StatusUnauthorized {
        t.Fatalf("expected gateway signature rejection, got %v", err)
    }
}

func TestHistoryNewestFirst(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"APP1": "s"})
    svc, _, _ := newTestService(t, gw, device.Credentials{ApplicationCode: "APP1", SecretKey: "s"}, nil)

    base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    tick := 0
    svc.now = func() time.Time {
        tick++
        return base.Add(time.Duration(tick) * time.Minute)
    }

    userID := uuid.NewString()
    for _, amount := range []float64{1, 2, 3} {
        if _, err := svc.GenerateLink(context.Background(), GenerateInput{UserID: userID, Amount: amount}); err != nil {
            t.Fatalf("generate: %v", err)
        }
    }
    links, err := svc.History(context.Background(), userID, 2)
    if err != nil {
        t.Fatalf("history: %v", err)
    }
    if len(links) != 2 || links[0].Amount != "3.00" || links[1].Amount != "2.00" {
        t.Fatalf("unexpected history %+v", links)
    }
}

type brokenNotifier struct{}

func (brokenNotifier) Send(context.Context, notification.Message) error {
    return errors.New("publish notification: dial tcp 127.0.0.1:1: connect: connection refused")
}

func TestGenerateLinkLogsNotificationFailure(t *testing.T) {
    gw := newFakeGateway(t, map[string]string{"APP1": "merchant-secret"})
    var buf bytes.Buffer
    svc := NewService(NewMemoryRepository(), nil, fiuu.NewHTTPGateway(gw.srv.URL+"/precreate.php", time.Second), Options{
        Merchant: device.Credentials{ApplicationCode: "APP1", SecretKey: "merchant-secret"},
        Profile:  testProfile(),
        Notifier: notification.Fanout{brokenNotifier{}},
        Logger:   logging.NewWithWriter("info", &buf),
    })

    link, err := svc.GenerateLink(context.Background(), GenerateInput{UserID: uuid.NewString(), Amount: 5})
    if err != nil {
        t.Fatalf("generate link must succeed when notification fails: %v", err)
    }
    out := buf.String()
    if !strings.Contains(out, "notification failed") || !strings.Contains(out, "connection refused") {
        t.Fatalf("expected notification failure in log, got %q", out)
    }
    if !strings.Contains(out, link.ReferenceID) || !strings.Contains(out, notification.KindQRGenerated) {
        t.Fatalf("expected reference id and kind in log, got %q", out)
    }
}
