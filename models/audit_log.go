package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAuditImmutable is returned when something tries to change a stored audit entry.
var ErrAuditImmutable = errors.New("audit log entries are append-only")

type AuditLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	InvoiceID     uint           `gorm:"not null;index" json:"invoice_id"`
	Action        string         `gorm:"size:20;not null" json:"action"`
	UserInfo      string         `gorm:"size:255" json:"user_info"`
	Timestamp     time.Time      `gorm:"not null" json:"timestamp"`
	PreviousState datatypes.JSON `json:"previous_state"`
	NewState      datatypes.JSON `json:"new_state"`
	IPAddress     string         `gorm:"size:64" json:"ip_address"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "invoice_audit_log"
}

func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (a *AuditLog) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
