package verifactu

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		CompanyID:       1,
		InvoiceNumber:   "VF2026-001",
		InvoiceSequence: 1,
		Date:            "2026-10-15",
		ClientCIF:       "B12345678",
		Subtotal:        decimal.RequireFromString("100"),
		TotalVAT:        decimal.RequireFromString("21"),
		Total:           decimal.RequireFromString("121"),
		Timestamp:       FormatTimestamp(time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)),
	}
}

func TestHashIsDeterministic(t *testing.T) {
	s := sampleSnapshot()

	first := Hash(s)
	assert.Len(t, first, 64)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Hash(s))
	}
}

func TestHashCanonicalForm(t *testing.T) {
	s := sampleSnapshot()

	assert.JSONEq(t, `{
		"company_id": 1,
		"invoice_number": "VF2026-001",
		"invoice_sequence": 1,
		"date": "2026-10-15",
		"client_cif": "B12345678",
		"subtotal": "100.00",
		"total_vat": "21.00",
		"total": "121.00",
		"previous_hash": "GENESIS",
		"timestamp": "2026-10-15T09:30:00.000Z"
	}`, string(s.Canonical()))
}

func TestHashSensitivity(t *testing.T) {
	base := sampleSnapshot()
	baseHash := Hash(base)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{name: "Total", mutate: func(s *Snapshot) { s.Total = decimal.RequireFromString("121.01") }},
		{name: "Client", mutate: func(s *Snapshot) { s.ClientCIF = "B87654321" }},
		{name: "Sequence", mutate: func(s *Snapshot) { s.InvoiceSequence = 2 }},
		{name: "Previous Hash", mutate: func(s *Snapshot) { s.PreviousHash = "abc" }},
		{name: "Timestamp", mutate: func(s *Snapshot) { s.Timestamp = "2026-10-15T09:30:00.001Z" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSnapshot()
			tt.mutate(&s)
			assert.NotEqual(t, baseHash, Hash(s))
		})
	}
}

func TestHashRoundsMoney(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.Total = decimal.RequireFromString("121.004")

	assert.Equal(t, Hash(a), Hash(b))
}

func TestEmptyPreviousHashIsGenesis(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.PreviousHash = Genesis

	assert.Equal(t, Hash(a), Hash(b))
}

func TestFormatTimestampUsesUTC(t *testing.T) {
	madrid := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2026, 10, 15, 11, 30, 0, 0, madrid)

	assert.Equal(t, "2026-10-15T09:30:00.000Z", FormatTimestamp(ts))
}
