package verifactu

import (
	"fmt"
	"slices"
)

type BreakReason string

const (
	ReasonSequenceBreak BreakReason = "sequence break"
	ReasonHashMismatch  BreakReason = "hash mismatch"
)

// ChainLink is the part of a finalized invoice the validator looks at.
type ChainLink struct {
	InvoiceID     uint
	InvoiceNumber string
	Sequence      int
	PreviousHash  string
	CurrentHash   string
	Cancelled     bool

	// CancelledAfter is the last sequence the company had allocated when
	// the link was cancelled. Nil for cancellations recorded without it.
	CancelledAfter *int
}

func (l ChainLink) chained() bool {
	return l.CurrentHash != ""
}

// skippedBy reports whether the link had already been cancelled when the
// invoice holding sequence seq was chained. known is false when the
// cancellation carries no ordering, in which case both outcomes are valid.
func (l ChainLink) skippedBy(seq int) (skipped, known bool) {
	if !l.Cancelled {
		return false, true
	}
	if l.CancelledAfter == nil {
		return false, false
	}
	return *l.CancelledAfter < seq, true
}

type ChainResult struct {
	Valid         bool        `json:"valid"`
	Message       string      `json:"message"`
	InvoiceID     uint        `json:"invoice_id,omitempty"`
	InvoiceNumber string      `json:"invoice_number,omitempty"`
	Reason        BreakReason `json:"reason,omitempty"`
	Checked       int         `json:"checked"`
	LastSequence  int         `json:"last_sequence"`
}

// ValidateChain walks the finalized invoices of one company, ordered by
// sequence, and reports the first sequence gap or broken hash link.
//
// Cancelled invoices keep their sequence slot, so they take part in the
// sequence check. They are skipped as predecessors for invoices whose
// sequence was allocated after the cancellation, and their own link is not
// flagged. Ordering comes from sequences only, never from timestamps.
func ValidateChain(links []ChainLink) ChainResult {
	if len(links) == 0 {
		return ChainResult{Valid: true, Message: "No invoices to validate"}
	}

	for i, link := range links {
		if link.Sequence != i+1 {
			return broken(link, i, ReasonSequenceBreak,
				fmt.Sprintf("Sequence break at invoice %s. Expected sequence %d, got %d", link.InvoiceNumber, i+1, link.Sequence))
		}

		if !link.chained() || link.Cancelled {
			continue
		}

		if !slices.Contains(acceptedPrevious(links[:i], link.Sequence), link.PreviousHash) {
			return broken(link, i, ReasonHashMismatch,
				fmt.Sprintf("Hash chain broken at invoice %s", link.InvoiceNumber))
		}
	}

	return ChainResult{
		Valid:        true,
		Message:      "Chain integrity verified",
		Checked:      len(links),
		LastSequence: links[len(links)-1].Sequence,
	}
}

// acceptedPrevious lists the hashes the invoice at seq may link to. It is a
// single hash unless a cancellation of unknown order sits in between.
func acceptedPrevious(history []ChainLink, seq int) []string {
	var accepted []string
	for j := len(history) - 1; j >= 0; j-- {
		prev := history[j]
		if !prev.chained() {
			continue
		}
		skipped, known := prev.skippedBy(seq)
		if skipped {
			continue
		}
		accepted = append(accepted, prev.CurrentHash)
		if known {
			return accepted
		}
	}
	return append(accepted, Genesis)
}

func broken(link ChainLink, checked int, reason BreakReason, msg string) ChainResult {
	return ChainResult{
		Valid:         false,
		Message:       msg,
		InvoiceID:     link.InvoiceID,
		InvoiceNumber: link.InvoiceNumber,
		Reason:        reason,
		Checked:       checked,
	}
}
