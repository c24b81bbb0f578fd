package store

import (
	"context"
	"fmt"

	"github.com/yourusername/facturas/models"
)

func (s *Store) AppendAuditEntry(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID != 0 {
		return models.ErrAuditImmutable
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListAuditEntries(ctx context.Context, invoiceID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries of invoice %d: %w", invoiceID, err)
	}
	return entries, nil
}
