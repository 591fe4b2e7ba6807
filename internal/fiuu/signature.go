package fiuu

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nextmachines/fiuupay/internal/apperr"
)

// Wire names of the signed precreate fields. Spelling and casing are part of
// the gateway contract.
const (
	FieldAmount           = "amount"
	FieldApplicationCode  = "applicationCode"
	FieldBusinessDate     = "businessDate"
	FieldChannelID        = "channelId"
	FieldCurrencyCode     = "currencyCode"
	FieldDescription      = "description"
	FieldHashType         = "hashType"
	FieldImageFormat      = "imageFormat"
	FieldImageSize        = "imageSize"
	FieldReferenceID      = "referenceId"
	FieldStoreID          = "storeId"
	FieldTerminalID       = "terminalId"
	FieldValidityDuration = "validityDuration"
	FieldMetadata         = "metadata"
	FieldVersion          = "version"

	// FieldSignature carries the hex HMAC and is never itself signed.
	FieldSignature = "signature"

	HashTypeHMACSHA256 = "hmac-sha256"
)

// FieldNames is the fixed signed field set.
var FieldNames = []string{
	FieldAmount, FieldApplicationCode, FieldBusinessDate, FieldChannelID,
	FieldCurrencyCode, FieldDescription, FieldHashType, FieldImageFormat,
	FieldImageSize, FieldReferenceID, FieldStoreID, FieldTerminalID,
	FieldValidityDuration, FieldMetadata, FieldVersion,
}

var sortedFieldNames = func() []string {
	names := append([]string(nil), FieldNames...)
	sort.Strings(names)
	return names
}()

// Canonicalize concatenates the values of the fixed field set in byte order
// of their names. Missing fields count as empty; unknown keys are ignored.
func Canonicalize(fields map[string]string) string {
	var b strings.Builder
	for _, name := range sortedFieldNames {
		b.WriteString(fields[name])
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical string.
func Sign(fields map[string]string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(Canonicalize(fields)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature against the expected one in constant time.
func Verify(fields map[string]string, secret []byte, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(fields, secret))
	return hmac.Equal(got, want)
}

// Signer signs precreate requests with one merchant secret.
type Signer struct {
	secret []byte
}

// NewSigner binds secret; an empty secret is a misconfiguration.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: merchant credentials not set", apperr.ErrMisconfiguration)
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the signature for req.
func (s *Signer) Sign(req PrecreateRequest) string {
	return Sign(req.Fields(), s.secret)
}

// FormatAmount renders a currency amount with exactly two decimals. The
// signature covers this text, so every caller must format through here.
func FormatAmount(amount float64) (string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "", apperr.Validation("amount must be a finite number")
	}
	if amount <= 0 {
		return "", apperr.Validation("amount must be greater than 0")
	}
	return strconv.FormatFloat(amount, 'f', 2, 64), nil
}
