// Package audit records who changed an invoice, when, and what it looked
// like before and after.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"gorm.io/datatypes"
)

const (
	ActionCreate   = "CREATE"
	ActionUpdate   = "UPDATE"
	ActionFinalize = "FINALIZE"
	ActionCancel   = "CANCEL"
	ActionHide     = "HIDE"
)

// Actor identifies whoever triggered a state change.
type Actor struct {
	User string
	IP   string
}

// System is the actor of changes made from the command line.
var System = Actor{User: "system"}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx, or System.
func ActorFrom(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorKey{}).(Actor); ok && actor.User != "" {
		return actor
	}
	return System
}

// State is the part of an invoice kept in audit snapshots.
type State struct {
	Status             models.InvoiceStatus `json:"status"`
	InvoiceNumber      string               `json:"invoice_number"`
	InvoiceSequence    *int                 `json:"invoice_sequence,omitempty"`
	Date               string               `json:"date"`
	ClientName         string               `json:"client_name"`
	ClientCIF          string               `json:"client_cif"`
	Subtotal           string               `json:"subtotal"`
	TotalVAT           string               `json:"total_vat"`
	Total              string               `json:"total"`
	Items              int                  `json:"items"`
	IsCancelled        bool                 `json:"is_cancelled"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CurrentHash        *string              `json:"current_hash,omitempty"`
	Hidden             bool                 `json:"hidden,omitempty"`
}

// Snapshot captures the audited fields of invoice. A nil invoice yields nil.
func Snapshot(invoice *models.Invoice) *State {
	if invoice == nil {
		return nil
	}
	return &State{
		Status:             invoice.Status,
		InvoiceNumber:      invoice.InvoiceNumber,
		InvoiceSequence:    invoice.InvoiceSequence,
		Date:               invoice.Date,
		ClientName:         invoice.ClientName,
		ClientCIF:          invoice.ClientCIF,
		Subtotal:           invoice.Subtotal.StringFixed(2),
		TotalVAT:           invoice.TotalVAT.StringFixed(2),
		Total:              invoice.Total.StringFixed(2),
		Items:              len(invoice.Items),
		IsCancelled:        invoice.IsCancelled,
		CancellationReason: invoice.CancellationReason,
		CurrentHash:        invoice.CurrentHash,
		Hidden:             invoice.DeletedAt.Valid,
	}
}

func encode(state *State) (datatypes.JSON, error) {
	if state == nil {
		return nil, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Logger appends entries through the storage collaborator.
type Logger struct {
	now func() time.Time
}

func NewLogger() *Logger {
	return NewLoggerWithClock(time.Now)
}

func NewLoggerWithClock(now func() time.Time) *Logger {
	return &Logger{now: now}
}

// Record appends one entry. Pass the transactional store so the entry
// commits or rolls back together with the change it describes.
func (l *Logger) Record(ctx context.Context, tx *store.Store, invoiceID uint, action string, before, after *State) error {
	previous, err := encode(before)
	if err != nil {
		return fmt.Errorf("failed to encode previous state: %w", err)
	}
	next, err := encode(after)
	if err != nil {
		return fmt.Errorf("failed to encode new state: %w", err)
	}

	actor := ActorFrom(ctx)
	return tx.AppendAuditEntry(ctx, &models.AuditLog{
		InvoiceID:     invoiceID,
		Action:        action,
		UserInfo:      actor.User,
		IPAddress:     actor.IP,
		Timestamp:     l.now().UTC(),
		PreviousState: previous,
		NewState:      next,
	})
}
