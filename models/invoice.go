package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	StatusDraft    InvoiceStatus = "draft"
	StatusProforma InvoiceStatus = "proforma"
	StatusFinal    InvoiceStatus = "final"
	// StatusCancelled is never stored; it is derived from IsCancelled.
	StatusCancelled InvoiceStatus = "cancelled"
)

// Editable reports whether items, client and totals may still change.
func (s InvoiceStatus) Editable() bool {
	return s == StatusDraft || s == StatusProforma
}

const (
	ClientTypeCompany    = "empresa"
	ClientTypeIndividual = "particular"
)

type Invoice struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
	CompanyID          uint            `gorm:"not null;index;uniqueIndex:idx_invoices_company_sequence" json:"company_id"`
	Company            *Company        `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	InvoiceNumber      string          `gorm:"size:50;not null;index" json:"invoice_number"`
	InvoiceSequence    *int            `gorm:"uniqueIndex:idx_invoices_company_sequence" json:"invoice_sequence"`
	Date               string          `gorm:"size:10;not null" json:"date"` // YYYY-MM-DD
	ClientName         string          `gorm:"size:255;not null" json:"client_name"`
	ClientCIF          string          `gorm:"size:20;not null" json:"client_cif"`
	ClientAddress      string          `gorm:"type:text" json:"client_address"`
	ClientType         string          `gorm:"size:20;default:'empresa'" json:"client_type"`
	Notes              string          `gorm:"type:text" json:"notes"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	TotalVAT           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_vat"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Status             InvoiceStatus   `gorm:"size:20;not null;default:'draft'" json:"status"`
	IsCancelled        bool            `gorm:"not null;default:false" json:"is_cancelled"`
	CancellationDate   *time.Time      `json:"cancellation_date"`
	CancellationReason string          `gorm:"type:text" json:"cancellation_reason"`
	CancelledAfterSeq  *int            `json:"cancelled_after_sequence,omitempty"`
	PreviousHash       *string         `gorm:"size:64" json:"previous_hash"`
	CurrentHash        *string         `gorm:"size:64" json:"current_hash"`
	HashTimestamp      string          `gorm:"size:40" json:"hash_timestamp,omitempty"`
	QRPayload          *string         `gorm:"type:text" json:"qr_payload"`
	Signature          *string         `gorm:"type:text" json:"signature"`
	SignatureKind      string          `gorm:"size:20" json:"signature_kind,omitempty"`
	FinalizedAt        *time.Time      `json:"finalized_at"`
	Items              []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

// EffectiveStatus folds the cancellation flag into the lifecycle status.
func (i *Invoice) EffectiveStatus() InvoiceStatus {
	if i.IsCancelled {
		return StatusCancelled
	}
	return i.Status
}

// Chained reports whether the invoice carries a Veri*Factu hash.
func (i *Invoice) Chained() bool {
	return i.CurrentHash != nil && *i.CurrentHash != ""
}

type InvoiceItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	InvoiceID        uint            `gorm:"not null;index" json:"invoice_id"`
	ArticleID        *uint           `json:"article_id"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	Quantity         decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	VATRate          decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"vat_rate"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	LineVAT          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_vat"`
	LineTotalWithVAT decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total_with_vat"`
	SortOrder        int             `gorm:"default:0" json:"sort_order"`
}

// TableName overrides the table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
