package invoicing

import (
	"errors"
	"fmt"

	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

// ValidationError rejects caller input. Nothing was written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError means the company or invoice does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// StateError rejects a transition the invoice's current status forbids.
type StateError struct {
	Op     string
	Status models.InvoiceStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s an invoice in status %s", e.Op, e.Status)
}

// SequenceConflictError means another writer took the sequence slot first.
// Retrying the whole finalize is safe.
type SequenceConflictError struct {
	CompanyID uint
	Err       error
}

func (e *SequenceConflictError) Error() string {
	return fmt.Sprintf("sequence conflict for company %d: %v", e.CompanyID, e.Err)
}

func (e *SequenceConflictError) Unwrap() error {
	return e.Err
}

// ChainIntegrityError turns a failed chain validation into an error for
// callers that need one, such as the CLI exit status.
type ChainIntegrityError struct {
	CompanyID uint
	Result    verifactu.ChainResult
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("company %d: %s", e.CompanyID, e.Result.Message)
}

// AsSigningError reports whether err carries a credential failure.
func AsSigningError(err error) (*verifactu.SigningError, bool) {
	var signErr *verifactu.SigningError
	ok := errors.As(err, &signErr)
	return signErr, ok
}

func mapNotFound(err error, entity string, id uint) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
