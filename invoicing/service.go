// Package invoicing owns the invoice lifecycle: drafts and proformas are
// edited freely, finalization assigns the sequence and seals the invoice
// into the company's hash chain, and cancellation flags it without ever
// giving its slot back.
package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/facturas/audit"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/logger"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/sequence"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

type Options struct {
	QRBaseURL         string
	DefaultSoftwareID string
}

type Service struct {
	store      *store.Store
	locker     lock.Locker
	allocator  *sequence.Allocator
	audit      *audit.Logger
	qrBaseURL  string
	softwareID string
	now        func() time.Time
	log        zerolog.Logger
}

func NewService(s *store.Store, locker lock.Locker, opts Options) *Service {
	if opts.QRBaseURL == "" {
		opts.QRBaseURL = verifactu.DefaultQRBaseURL
	}
	if opts.DefaultSoftwareID == "" {
		opts.DefaultSoftwareID = verifactu.DefaultSoftwareID
	}
	return &Service{
		store:      s,
		locker:     locker,
		allocator:  sequence.NewAllocator(s, locker),
		audit:      audit.NewLogger(),
		qrBaseURL:  opts.QRBaseURL,
		softwareID: opts.DefaultSoftwareID,
		now:        time.Now,
		log:        logger.WithComponent("invoicing"),
	}
}

// WithClock replaces the time source everywhere the service reads it.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.allocator.WithClock(now)
	s.audit = audit.NewLoggerWithClock(now)
	return s
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "invoice", id)
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, filter store.InvoiceFilter) ([]models.Invoice, error) {
	return s.store.ListInvoices(ctx, filter)
}

func (s *Service) AuditTrail(ctx context.Context, id uint) ([]models.AuditLog, error) {
	// Hidden invoices keep their trail.
	if _, err := s.store.FindInvoiceByID(ctx, id); err != nil {
		return nil, mapNotFound(err, "invoice", id)
	}
	return s.store.ListAuditEntries(ctx, id)
}

func (s *Service) requireCompany(ctx context.Context, id uint) (*models.Company, error) {
	company, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "company", id)
	}
	return company, nil
}

// Create stores a new draft or proforma.
func (s *Service) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	in.normalize(s.now(), models.StatusDraft)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.requireCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{}
	in.apply(invoice)

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, invoice.ID, audit.ActionCreate, nil, audit.Snapshot(invoice))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("invoice_id", invoice.ID).
		Uint("company_id", invoice.CompanyID).
		Str("status", string(invoice.Status)).
		Msg("Invoice created")
	return invoice, nil
}

// Update replaces the content of a draft or proforma wholesale.
func (s *Service) Update(ctx context.Context, id uint, in InvoiceInput) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !invoice.Status.Editable() || invoice.IsCancelled {
		return nil, &StateError{Op: "edit", Status: invoice.EffectiveStatus()}
	}

	if in.CompanyID == 0 {
		in.CompanyID = invoice.CompanyID
	}
	if in.CompanyID != invoice.CompanyID {
		return nil, invalid("company_id", "cannot be changed")
	}
	if in.InvoiceNumber == "" {
		in.InvoiceNumber = invoice.InvoiceNumber
	}
	in.normalize(s.now(), invoice.Status)
	if err := in.validate(); err != nil {
		return nil, err
	}

	before := audit.Snapshot(invoice)
	in.apply(invoice)

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.ReplaceInvoiceContent(ctx, invoice); err != nil {
			if errors.Is(err, store.ErrNotEditable) {
				return &StateError{Op: "edit", Status: models.StatusFinal}
			}
			return err
		}
		return s.audit.Record(ctx, tx, invoice.ID, audit.ActionUpdate, before, audit.Snapshot(invoice))
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Hide removes a draft or proforma from listings. Finalized invoices stay
// visible forever and can only be cancelled.
func (s *Service) Hide(ctx context.Context, id uint) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !invoice.Status.Editable() || invoice.IsCancelled {
		return &StateError{Op: "hide", Status: invoice.EffectiveStatus()}
	}

	before := audit.Snapshot(invoice)
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.HideInvoice(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotEditable) {
				return &StateError{Op: "hide", Status: models.StatusFinal}
			}
			return mapNotFound(err, "invoice", id)
		}
		after := *before
		after.Hidden = true
		return s.audit.Record(ctx, tx, id, audit.ActionHide, before, &after)
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("invoice_id", id).Msg("Invoice hidden")
	return nil
}
