// Package verifactu implements the integrity primitives of the Veri*Factu
// scheme: the canonical invoice hash, the company signature, the QR
// verification payload, the final invoice number format and the chain
// validator. Everything here is pure and does no I/O.
package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Genesis is the previous hash of the first invoice in a company chain.
const Genesis = "GENESIS"

// TimestampLayout is the ISO-8601 form embedded in hashed payloads.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Snapshot holds the legally relevant fields of an invoice at finalization.
type Snapshot struct {
	CompanyID       uint
	InvoiceNumber   string
	InvoiceSequence int
	Date            string
	ClientCIF       string
	Subtotal        decimal.Decimal
	TotalVAT        decimal.Decimal
	Total           decimal.Decimal
	PreviousHash    string
	Timestamp       string
}

// canonicalSnapshot fixes the field order of the hashed document.
type canonicalSnapshot struct {
	CompanyID       uint   `json:"company_id"`
	InvoiceNumber   string `json:"invoice_number"`
	InvoiceSequence int    `json:"invoice_sequence"`
	Date            string `json:"date"`
	ClientCIF       string `json:"client_cif"`
	Subtotal        string `json:"subtotal"`
	TotalVAT        string `json:"total_vat"`
	Total           string `json:"total"`
	PreviousHash    string `json:"previous_hash"`
	Timestamp       string `json:"timestamp"`
}

// FormatTimestamp renders t the way it is embedded in a snapshot.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Canonical returns the exact bytes that Hash digests.
func (s Snapshot) Canonical() []byte {
	previous := s.PreviousHash
	if previous == "" {
		previous = Genesis
	}
	doc := canonicalSnapshot{
		CompanyID:       s.CompanyID,
		InvoiceNumber:   s.InvoiceNumber,
		InvoiceSequence: s.InvoiceSequence,
		Date:            s.Date,
		ClientCIF:       s.ClientCIF,
		Subtotal:        s.Subtotal.StringFixed(2),
		TotalVAT:        s.TotalVAT.StringFixed(2),
		Total:           s.Total.StringFixed(2),
		PreviousHash:    previous,
		Timestamp:       s.Timestamp,
	}
	// Marshalling a struct of strings and integers cannot fail.
	data, _ := json.Marshal(doc)
	return data
}

// Hash returns the hex SHA-256 digest of the canonical snapshot.
func Hash(s Snapshot) string {
	sum := sha256.Sum256(s.Canonical())
	return hex.EncodeToString(sum[:])
}
