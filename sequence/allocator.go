// Package sequence hands out per-company invoice sequence numbers. A number
// is read and committed inside one critical section so that two
// finalizations can never share a slot.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/facturas/lock"
	"github.com/yourusername/facturas/logger"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

// maxCollisions bounds the search for a free invoice number.
const maxCollisions = 1000

// Reservation is what a finalization gets to work with while it holds the
// company's critical section.
type Reservation struct {
	Company       *models.Company
	Sequence      int
	InvoiceNumber string
	At            time.Time
}

type Allocator struct {
	store  *store.Store
	locker lock.Locker
	now    func() time.Time
	log    zerolog.Logger
}

func NewAllocator(s *store.Store, locker lock.Locker) *Allocator {
	return &Allocator{
		store:  s,
		locker: locker,
		now:    time.Now,
		log:    logger.WithComponent("sequence"),
	}
}

// WithClock replaces the time source, used by tests.
func (a *Allocator) WithClock(now func() time.Time) *Allocator {
	a.now = now
	return a
}

// NextSequence returns the sequence a finalization would get right now.
// It persists nothing.
func (a *Allocator) NextSequence(ctx context.Context, tx *store.Store, companyID uint) (int, error) {
	company, err := tx.GetCompanyForUpdate(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return company.LastInvoiceSequence + 1, nil
}

// CommitSequence records seq as the company's last used sequence, provided
// nobody moved the counter away from expected in the meantime.
func (a *Allocator) CommitSequence(ctx context.Context, tx *store.Store, companyID uint, expected, seq int) error {
	if seq <= expected {
		return fmt.Errorf("sequence %d does not advance past %d", seq, expected)
	}
	return tx.UpdateCompanyLastSequence(ctx, companyID, expected, seq)
}

// Reserve runs fn inside the company's critical section with the next free
// sequence and its invoice number. The sequence is committed only if fn
// succeeds, and everything fn wrote through tx is rolled back otherwise.
func (a *Allocator) Reserve(ctx context.Context, companyID uint, fn func(tx *store.Store, r Reservation) error) error {
	unlock, err := a.locker.Lock(ctx, lock.CompanyKey(companyID))
	if err != nil {
		return err
	}
	defer unlock()

	return a.store.Transaction(ctx, func(tx *store.Store) error {
		company, err := tx.GetCompanyForUpdate(ctx, companyID)
		if err != nil {
			return err
		}

		at := a.now().UTC().Truncate(time.Microsecond)
		last := company.LastInvoiceSequence
		seq, number, err := a.freeNumber(ctx, tx, company, last+1, at.Year())
		if err != nil {
			return err
		}

		if err := fn(tx, Reservation{Company: company, Sequence: seq, InvoiceNumber: number, At: at}); err != nil {
			return err
		}

		if err := a.CommitSequence(ctx, tx, companyID, last, seq); err != nil {
			return err
		}

		a.log.Debug().
			Uint("company_id", companyID).
			Int("sequence", seq).
			Str("invoice_number", number).
			Msg("Sequence committed")
		return nil
	})
}

// freeNumber skips sequences whose rendered number is already taken by
// another invoice of the company.
func (a *Allocator) freeNumber(ctx context.Context, tx *store.Store, company *models.Company, seq, year int) (int, string, error) {
	for i := 0; i < maxCollisions; i++ {
		number := verifactu.FormatInvoiceNumber(seq, company.VerifactuEnabled, year)
		_, err := tx.FindInvoiceByNumber(ctx, company.ID, number, 0)
		if errors.Is(err, store.ErrNotFound) {
			return seq, number, nil
		}
		if err != nil {
			return 0, "", err
		}
		a.log.Warn().
			Uint("company_id", company.ID).
			Str("invoice_number", number).
			Msg("Invoice number already in use, trying next sequence")
		seq++
	}
	return 0, "", fmt.Errorf("no free invoice number for company %d after %d attempts", company.ID, maxCollisions)
}
