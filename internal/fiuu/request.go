package fiuu

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// PrecreateRequest is the signed body of a QR precreate call.
type PrecreateRequest struct {
	Amount           string
	ApplicationCode  string
	BusinessDate     string
	ChannelID        string
	CurrencyCode     string
	Description      string
	HashType         string
	ImageFormat      string
	ImageSize        string
	ReferenceID      string
	StoreID          string
	TerminalID       string
	ValidityDuration string
	Metadata         string
	Version          string
}

// Fields returns every signed field keyed by wire name, empty ones included.
func (r PrecreateRequest) Fields() map[string]string {
	return map[string]string{
		FieldAmount:           r.Amount,
		FieldApplicationCode:  r.ApplicationCode,
		FieldBusinessDate:     r.BusinessDate,
		FieldChannelID:        r.ChannelID,
		FieldCurrencyCode:     r.CurrencyCode,
		FieldDescription:      r.Description,
		FieldHashType:         r.HashType,
		FieldImageFormat:      r.ImageFormat,
		FieldImageSize:        r.ImageSize,
		FieldReferenceID:      r.ReferenceID,
		FieldStoreID:          r.StoreID,
		FieldTerminalID:       r.TerminalID,
		FieldValidityDuration: r.ValidityDuration,
		FieldMetadata:         r.Metadata,
		FieldVersion:          r.Version,
	}
}

// Form encodes the request plus signature as an x-www-form-urlencoded body.
func (r PrecreateRequest) Form(signature string) url.Values {
	form := url.Values{}
	for name, value := range r.Fields() {
		form.Set(name, value)
	}
	form.Set(FieldSignature, signature)
	return form
}

// NewReferenceID returns a merchant reference of the form REF<32 uppercase hex>.
func NewReferenceID() string {
	return "REF" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// PrecreateResponse is the subset of the gateway reply the service uses.
type PrecreateResponse struct {
	ImageURL      string     `json:"imageUrl"`
	TransactionID looseValue `json:"molTransactionId"`
	StatusCode    looseValue `json:"statusCode"`
	Amount        looseValue `json:"amount"`
	CurrencyCode  string     `json:"currencyCode"`
}

// looseValue accepts a JSON string or number and keeps its text form.
type looseValue string

func (v *looseValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = looseValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = looseValue(n.String())
	return nil
}

func (v looseValue) String() string { return string(v) }
