// Package store is the gorm backed storage collaborator of the invoice
// lifecycle. It knows nothing about state transitions; it only reads and
// writes rows.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/facturas/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrSequenceConflict = errors.New("invoice sequence conflict")
	ErrNotEditable      = errors.New("invoice is no longer editable")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, bound to the current transaction when
// the store came from Transaction.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a store bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %v: %w", entity, id, err)
}

func (s *Store) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, notFound(err, "company", id)
	}
	return &company, nil
}

// GetCompanyForUpdate reads the company with a row lock held until the
// surrounding transaction ends. SQLite ignores the locking clause.
func (s *Store) GetCompanyForUpdate(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&company, id).Error
	if err != nil {
		return nil, notFound(err, "company", id)
	}
	return &company, nil
}

// UpdateCompanyLastSequence moves the company counter from expected to seq.
// It fails with ErrSequenceConflict when someone else moved it first.
func (s *Store) UpdateCompanyLastSequence(ctx context.Context, companyID uint, expected, seq int) error {
	result := s.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ? AND last_invoice_sequence = ?", companyID, expected).
		Update("last_invoice_sequence", seq)
	if result.Error != nil {
		return fmt.Errorf("failed to update sequence of company %d: %w", companyID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("company %d expected last sequence %d: %w", companyID, expected, ErrSequenceConflict)
	}
	return nil
}
