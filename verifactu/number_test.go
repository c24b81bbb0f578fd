package verifactu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "VF2026-001", FormatInvoiceNumber(1, true, 2026))
	assert.Equal(t, "F2026-042", FormatInvoiceNumber(42, false, 2026))
	assert.Equal(t, "VF2026-1234", FormatInvoiceNumber(1234, true, 2026))
}

func TestIsReservedNumber(t *testing.T) {
	tests := []struct {
		number   string
		reserved bool
	}{
		{"VF2026-001", true},
		{"F2025-120", true},
		{"BORRADOR-1a2b3c4d", false},
		{"DRAFT-1700000000", false},
		{"VF2026-01", false},
		{"XF2026-001", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.reserved, IsReservedNumber(tt.number))
		})
	}
}
