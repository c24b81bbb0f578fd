package invoicing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yourusername/facturas/audit"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/sequence"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

var finalizeColumns = []string{
	"invoice_number", "invoice_sequence", "status", "finalized_at",
	"previous_hash", "current_hash", "hash_timestamp",
	"qr_payload", "signature", "signature_kind",
}

var cancelColumns = []string{"is_cancelled", "cancellation_date", "cancellation_reason", "cancelled_after_seq"}

// Finalize seals a draft or proforma. It assigns the next sequence and
// number, and for Veri*Factu companies links the invoice into the chain,
// signs it and builds its QR payload. Either all of it is stored or none.
func (s *Service) Finalize(ctx context.Context, id uint) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.Editable() || invoice.IsCancelled {
		return nil, &StateError{Op: "finalize", Status: invoice.EffectiveStatus()}
	}

	err = s.allocator.Reserve(ctx, invoice.CompanyID, func(tx *store.Store, r sequence.Reservation) error {
		// Re-read under the lock; a concurrent call may have won.
		current, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return mapNotFound(err, "invoice", id)
		}
		if !current.Status.Editable() || current.IsCancelled {
			return &StateError{Op: "finalize", Status: current.EffectiveStatus()}
		}

		before := audit.Snapshot(current)
		if err := s.seal(ctx, tx, current, r); err != nil {
			return err
		}
		if err := tx.UpdateInvoiceStatus(ctx, current, finalizeColumns...); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id, audit.ActionFinalize, before, audit.Snapshot(current))
	})
	if err != nil {
		if store.IsConflict(err) {
			return nil, &SequenceConflictError{CompanyID: invoice.CompanyID, Err: err}
		}
		return nil, mapNotFound(err, "company", invoice.CompanyID)
	}

	finalized, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Uint("invoice_id", id).
		Uint("company_id", finalized.CompanyID).
		Str("invoice_number", finalized.InvoiceNumber).
		Int("sequence", *finalized.InvoiceSequence).
		Bool("chained", finalized.Chained()).
		Msg("Invoice finalized")
	return finalized, nil
}

// seal fills the final fields of invoice from the reservation.
func (s *Service) seal(ctx context.Context, tx *store.Store, invoice *models.Invoice, r sequence.Reservation) error {
	seq := r.Sequence
	at := r.At
	invoice.InvoiceNumber = r.InvoiceNumber
	invoice.InvoiceSequence = &seq
	invoice.Status = models.StatusFinal
	invoice.FinalizedAt = &at

	company := r.Company
	if !company.VerifactuEnabled {
		invoice.PreviousHash = nil
		invoice.CurrentHash = nil
		invoice.HashTimestamp = ""
		invoice.QRPayload = nil
		invoice.Signature = nil
		invoice.SignatureKind = ""
		return nil
	}

	previous := verifactu.Genesis
	last, err := tx.GetLastChainedInvoice(ctx, company.ID)
	switch {
	case err == nil:
		previous = *last.CurrentHash
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	timestamp := verifactu.FormatTimestamp(at)
	hash := verifactu.Hash(verifactu.Snapshot{
		CompanyID:       company.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		InvoiceSequence: seq,
		Date:            invoice.Date,
		ClientCIF:       invoice.ClientCIF,
		Subtotal:        invoice.Subtotal,
		TotalVAT:        invoice.TotalVAT,
		Total:           invoice.Total,
		PreviousHash:    previous,
		Timestamp:       timestamp,
	})

	sig, err := verifactu.Sign(s.signInput(company, hash, timestamp))
	if err != nil {
		return err
	}

	qr := verifactu.QRPayload(s.qrBaseURL, verifactu.QRData{
		CIF:           company.CIF,
		InvoiceNumber: invoice.InvoiceNumber,
		Date:          invoice.Date,
		Total:         invoice.Total,
		Hash:          hash,
	})

	invoice.PreviousHash = &previous
	invoice.CurrentHash = &hash
	invoice.HashTimestamp = timestamp
	invoice.QRPayload = &qr
	invoice.Signature = &sig.Value
	invoice.SignatureKind = string(sig.Kind)
	return nil
}

func (s *Service) signInput(company *models.Company, hash, timestamp string) verifactu.SignInput {
	softwareID := company.SoftwareID
	if softwareID == "" {
		softwareID = s.softwareID
	}
	var credential *verifactu.Credential
	if company.HasCredential() {
		credential = &verifactu.Credential{
			Bundle:   company.Certificate,
			Password: company.CertificatePassword,
		}
	}
	return verifactu.SignInput{
		Hash:       hash,
		Credential: credential,
		CIF:        company.CIF,
		SoftwareID: softwareID,
		Timestamp:  timestamp,
	}
}

// Cancel flags a finalized invoice as cancelled. Its sequence slot and hash
// stay untouched; later invoices simply stop chaining to it.
func (s *Service) Cancel(ctx context.Context, id uint, reason string) (*models.Invoice, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != models.StatusFinal || invoice.IsCancelled {
		return nil, &StateError{Op: "cancel", Status: invoice.EffectiveStatus()}
	}

	// Cancellation changes which invoice the next finalization links to, so
	// it goes through the same critical section.
	unlock, err := s.locker.Lock(ctx, lock.CompanyKey(invoice.CompanyID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		current, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return mapNotFound(err, "invoice", id)
		}
		if current.IsCancelled {
			return &StateError{Op: "cancel", Status: current.EffectiveStatus()}
		}

		// The company's last sequence orders this cancellation against
		// every finalization, since both run under the company lock.
		company, err := tx.GetCompanyForUpdate(ctx, current.CompanyID)
		if err != nil {
			return mapNotFound(err, "company", current.CompanyID)
		}
		after := company.LastInvoiceSequence

		before := audit.Snapshot(current)
		at := s.now().UTC().Truncate(time.Microsecond)
		current.IsCancelled = true
		current.CancelledAfterSeq = &after
		current.CancellationDate = &at
		current.CancellationReason = reason
		if err := tx.UpdateInvoiceStatus(ctx, current, cancelColumns...); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, id, audit.ActionCancel, before, audit.Snapshot(current))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("invoice_id", id).
		Str("invoice_number", invoice.InvoiceNumber).
		Str("reason", reason).
		Msg("Invoice cancelled")
	return s.Get(ctx, id)
}
