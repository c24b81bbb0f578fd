package verifactu

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// DefaultQRBaseURL is the simplified AEAT verification endpoint.
const DefaultQRBaseURL = "https://sede.agenciatributaria.gob.es/verifactu"

// qrHashLength is how many hex characters of the hash the payload carries.
const qrHashLength = 16

// QRData is the content of the verification QR code.
type QRData struct {
	CIF           string
	InvoiceNumber string
	Date          string
	Total         decimal.Decimal
	Hash          string
}

// QRPayload builds the verification URL carried by the QR code.
func QRPayload(baseURL string, d QRData) string {
	if baseURL == "" {
		baseURL = DefaultQRBaseURL
	}
	hash := d.Hash
	if len(hash) > qrHashLength {
		hash = hash[:qrHashLength]
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "?"))
	b.WriteByte('?')
	fmt.Fprintf(&b, "nif=%s", url.QueryEscape(d.CIF))
	fmt.Fprintf(&b, "&num=%s", url.QueryEscape(d.InvoiceNumber))
	fmt.Fprintf(&b, "&fecha=%s", url.QueryEscape(d.Date))
	fmt.Fprintf(&b, "&importe=%s", d.Total.StringFixed(2))
	fmt.Fprintf(&b, "&hash=%s", url.QueryEscape(hash))
	return b.String()
}

// QRCodePNG renders payload as a PNG image with medium error correction.
func QRCodePNG(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty QR payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
