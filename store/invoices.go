package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourusername/facturas/models"
	"gorm.io/gorm"
)

// contentColumns are the invoice columns replaced by a draft edit.
var contentColumns = []string{
	"invoice_number", "date", "client_name", "client_cif", "client_address",
	"client_type", "notes", "subtotal", "total_vat", "total", "status",
}

func (s *Store) InsertInvoice(ctx context.Context, invoice *models.Invoice) error {
	if err := s.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		First(&invoice, id).Error
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return &invoice, nil
}

// FindInvoiceByID loads an invoice without its items, hidden ones included.
func (s *Store) FindInvoiceByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Unscoped().First(&invoice, id).Error; err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return &invoice, nil
}

// ReplaceInvoiceContent overwrites the editable columns and swaps the line
// items wholesale. It only touches rows still in draft or proforma and
// returns ErrNotEditable otherwise. Call it inside a transaction.
func (s *Store) ReplaceInvoiceContent(ctx context.Context, invoice *models.Invoice) error {
	db := s.db.WithContext(ctx)

	result := db.Model(invoice).
		Where("status IN ? AND is_cancelled = ?", []models.InvoiceStatus{models.StatusDraft, models.StatusProforma}, false).
		Select(contentColumns).
		Updates(invoice)
	if result.Error != nil {
		return fmt.Errorf("failed to update invoice %d: %w", invoice.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("invoice %d: %w", invoice.ID, ErrNotEditable)
	}
	if err := db.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete items of invoice %d: %w", invoice.ID, err)
	}
	for i := range invoice.Items {
		invoice.Items[i].ID = 0
		invoice.Items[i].InvoiceID = invoice.ID
	}
	if len(invoice.Items) > 0 {
		if err := db.Create(&invoice.Items).Error; err != nil {
			return fmt.Errorf("failed to insert items of invoice %d: %w", invoice.ID, err)
		}
	}
	return nil
}

// UpdateInvoiceStatus writes the named columns of invoice, zero values
// included.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, invoice *models.Invoice, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("no columns given for invoice %d", invoice.ID)
	}
	err := s.db.WithContext(ctx).Model(invoice).Select(columns).Updates(invoice).Error
	if err != nil {
		return fmt.Errorf("failed to update invoice %d: %w", invoice.ID, err)
	}
	return nil
}

// FindInvoiceByNumber looks up another invoice of the company carrying
// number, hidden ones included. excludeID is skipped.
func (s *Store) FindInvoiceByNumber(ctx context.Context, companyID uint, number string, excludeID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Unscoped().
		Where("company_id = ? AND invoice_number = ? AND id <> ?", companyID, number, excludeID).
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err, "invoice number", number)
	}
	return &invoice, nil
}

// GetLastChainedInvoice returns the highest sequence invoice of the company
// that carries a hash and is not cancelled.
func (s *Store) GetLastChainedInvoice(ctx context.Context, companyID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Unscoped().
		Where("company_id = ? AND status = ? AND is_cancelled = ?", companyID, models.StatusFinal, false).
		Where("current_hash IS NOT NULL AND current_hash <> ''").
		Order("invoice_sequence DESC").
		First(&invoice).Error
	if err != nil {
		return nil, notFound(err, "chained invoice of company", companyID)
	}
	return &invoice, nil
}

// ListChain returns every finalized invoice of the company ordered by
// sequence, cancelled ones included.
func (s *Store) ListChain(ctx context.Context, companyID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).Unscoped().
		Where("company_id = ? AND status = ? AND invoice_sequence IS NOT NULL", companyID, models.StatusFinal).
		Order("invoice_sequence ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chain of company %d: %w", companyID, err)
	}
	return invoices, nil
}

// HideInvoice soft deletes a draft or proforma so lists stop showing it.
// A row that is final or cancelled by the time the delete runs is left
// alone and ErrNotEditable is returned.
func (s *Store) HideInvoice(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	result := db.
		Where("status IN ? AND is_cancelled = ?", []models.InvoiceStatus{models.StatusDraft, models.StatusProforma}, false).
		Delete(&models.Invoice{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to hide invoice %d: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := db.Model(&models.Invoice{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up invoice %d: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("invoice %d: %w", id, ErrNotEditable)
}

type InvoiceFilter struct {
	CompanyID     uint
	DateFrom      string
	DateTo        string
	Client        string
	InvoiceNumber string
	ClientType    string
	Verifactu     *bool
	Status        string // active, cancelled, draft, proforma, final
	Limit         int
	Offset        int
}

func (s *Store) ListInvoices(ctx context.Context, f InvoiceFilter) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Model(&models.Invoice{}).Preload("Company")

	if f.CompanyID != 0 {
		query = query.Where("company_id = ?", f.CompanyID)
	}
	if f.DateFrom != "" {
		query = query.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		query = query.Where("date <= ?", f.DateTo)
	}
	if f.Client != "" {
		like := "%" + strings.ToLower(f.Client) + "%"
		query = query.Where("(LOWER(client_name) LIKE ? OR LOWER(client_cif) LIKE ?)", like, like)
	}
	if f.InvoiceNumber != "" {
		query = query.Where("invoice_number LIKE ?", "%"+f.InvoiceNumber+"%")
	}
	if f.ClientType != "" {
		query = query.Where("client_type = ?", f.ClientType)
	}
	if f.Verifactu != nil {
		if *f.Verifactu {
			query = query.Where("current_hash IS NOT NULL")
		} else {
			query = query.Where("current_hash IS NULL")
		}
	}
	switch f.Status {
	case "":
	case "active":
		query = query.Where("is_cancelled = ?", false)
	case string(models.StatusCancelled):
		query = query.Where("is_cancelled = ?", true)
	default:
		query = query.Where("status = ? AND is_cancelled = ?", f.Status, false)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit).Offset(f.Offset)
	}

	var invoices []models.Invoice
	if err := query.Order("date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}
