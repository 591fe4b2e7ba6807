package qr

import "time"

// Payment records one precreate request the gateway accepted.
type Payment struct {
    ID                   string
    UserID               string
    DeviceID             string
    ReferenceID          string
    Amount               string
    Currency             string
    GatewayTransactionID string
    GatewayStatus        string
    ImageURL             string
    CreatedAt            time.Time
}

// GenerateInput captures a QR request. DeviceID is optional; without it the
// configured merchant credentials sign the request.
type GenerateInput struct {
    UserID   string
    DeviceID string
    Amount   float64
}

// Link is the gateway summary of a created QR payment.
type Link struct {
    QRURL         string `json:"qr_url"`
    TransactionID string `json:"transaction_id"`
    Status        string `json:"status"`
    Amount        string `json:"amount"`
    Currency      string `json:"currency"`
    ReferenceID   string `json:"reference_id"`
}

// Image is a rendered QR code together with the payment it belongs to.
type Image struct {
    Link        Link
    Data        []byte
    ContentType string
}

func (p Payment) link() Link {
    return Link{
        QRURL:         p.ImageURL,
        TransactionID: p.GatewayTransactionID,
        Status:        p.GatewayStatus,
        Amount:        p.Amount,
        Currency:      p.Currency,
        ReferenceID:   p.ReferenceID,
    }
}
