package invoicing

import (
	"context"

	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

// ValidateChain checks the company's finalized invoices for sequence gaps
// and broken hash links. It never writes.
func (s *Service) ValidateChain(ctx context.Context, companyID uint) (verifactu.ChainResult, error) {
	if _, err := s.requireCompany(ctx, companyID); err != nil {
		return verifactu.ChainResult{}, err
	}

	var invoices []models.Invoice
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		invoices, err = tx.ListChain(ctx, companyID)
		return err
	})
	if err != nil {
		return verifactu.ChainResult{}, err
	}

	links := make([]verifactu.ChainLink, 0, len(invoices))
	for _, inv := range invoices {
		links = append(links, chainLink(inv))
	}
	return verifactu.ValidateChain(links), nil
}

func chainLink(inv models.Invoice) verifactu.ChainLink {
	link := verifactu.ChainLink{
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		Cancelled:      inv.IsCancelled,
		CancelledAfter: inv.CancelledAfterSeq,
	}
	if inv.InvoiceSequence != nil {
		link.Sequence = *inv.InvoiceSequence
	}
	if inv.PreviousHash != nil {
		link.PreviousHash = *inv.PreviousHash
	}
	if inv.CurrentHash != nil {
		link.CurrentHash = *inv.CurrentHash
	}
	return link
}

type VerifyResult struct {
	InvoiceID         uint                    `json:"invoice_id"`
	InvoiceNumber     string                  `json:"invoice_number"`
	Verified          bool                    `json:"verified"`
	StoredHash        string                  `json:"stored_hash"`
	RecalculatedHash  string                  `json:"recalculated_hash"`
	HashTimestamp     string                  `json:"hash_timestamp"`
	SignatureKind     verifactu.SignatureKind `json:"signature_kind,omitempty"`
	SignatureAttested bool                    `json:"signature_attested"`
	SignatureValid    bool                    `json:"signature_valid"`
	Message           string                  `json:"message"`
}

// Verify recomputes the hash of a chained invoice from its stored fields and
// the timestamp recorded when it was sealed, and checks its signature.
func (s *Service) Verify(ctx context.Context, id uint) (*VerifyResult, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{InvoiceID: invoice.ID, InvoiceNumber: invoice.InvoiceNumber}
	if !invoice.Chained() || invoice.InvoiceSequence == nil {
		result.Message = "Invoice has no Veri*Factu hash"
		return result, nil
	}

	company, err := s.requireCompany(ctx, invoice.CompanyID)
	if err != nil {
		return nil, err
	}

	previous := ""
	if invoice.PreviousHash != nil {
		previous = *invoice.PreviousHash
	}
	recalculated := verifactu.Hash(verifactu.Snapshot{
		CompanyID:       invoice.CompanyID,
		InvoiceNumber:   invoice.InvoiceNumber,
		InvoiceSequence: *invoice.InvoiceSequence,
		Date:            invoice.Date,
		ClientCIF:       invoice.ClientCIF,
		Subtotal:        invoice.Subtotal,
		TotalVAT:        invoice.TotalVAT,
		Total:           invoice.Total,
		PreviousHash:    previous,
		Timestamp:       invoice.HashTimestamp,
	})

	result.StoredHash = *invoice.CurrentHash
	result.RecalculatedHash = recalculated
	result.HashTimestamp = invoice.HashTimestamp
	result.Verified = recalculated == result.StoredHash

	if invoice.Signature != nil {
		sig := verifactu.Signature{Kind: verifactu.SignatureKind(invoice.SignatureKind), Value: *invoice.Signature}
		result.SignatureKind = sig.Kind
		result.SignatureAttested = sig.IsAttested()
		valid, err := verifactu.VerifySignature(s.signInput(company, result.StoredHash, invoice.HashTimestamp), sig)
		if err != nil {
			s.log.Warn().Err(err).Uint("invoice_id", id).Msg("Signature could not be checked")
		}
		result.SignatureValid = valid
	}

	switch {
	case !result.Verified:
		result.Message = "Stored hash does not match invoice data"
	case !result.SignatureValid:
		result.Message = "Hash verified, signature not valid"
	case !result.SignatureAttested:
		result.Message = "Hash verified, signature is an unverified placeholder"
	default:
		result.Message = "Invoice verified"
	}
	return result, nil
}
