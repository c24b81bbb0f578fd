package verifactu

import (
	"fmt"
	"regexp"
)

const (
	verifactuPrefix = "VF"
	plainPrefix     = "F"
)

var finalNumberPattern = regexp.MustCompile(`^(VF|F)\d{4}-\d{3,}$`)

// FormatInvoiceNumber renders the human facing number of a finalized
// invoice, e.g. VF2026-007 for a Veri*Factu company.
func FormatInvoiceNumber(sequence int, verifactuEnabled bool, year int) string {
	prefix := plainPrefix
	if verifactuEnabled {
		prefix = verifactuPrefix
	}
	return fmt.Sprintf("%s%d-%03d", prefix, year, sequence)
}

// IsReservedNumber reports whether number has the shape only finalization
// may assign.
func IsReservedNumber(number string) bool {
	return finalNumberPattern.MatchString(number)
}
