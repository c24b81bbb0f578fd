package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultSoftwareName = "Sistema Facturas v1.0"

type Company struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
	Name                string         `gorm:"size:255;not null" json:"company_name"`
	CIF                 string         `gorm:"size:20;not null" json:"cif"`
	Address             string         `gorm:"type:text" json:"address"`
	Phone               string         `gorm:"size:50" json:"phone"`
	Email               string         `gorm:"size:255" json:"email"`
	BankIBAN            string         `gorm:"size:34" json:"bank_iban"`
	VerifactuEnabled    bool           `gorm:"default:false" json:"verifactu_enabled"`
	SoftwareID          string         `gorm:"size:100" json:"verifactu_software_id"`
	SoftwareName        string         `gorm:"size:255" json:"verifactu_software_name"`
	LastInvoiceSequence int            `gorm:"not null;default:0" json:"last_invoice_sequence"`
	Certificate         []byte         `json:"-"` // PKCS#12 bundle
	CertificatePassword string         `gorm:"size:255" json:"-"`
	HasCertificate      bool           `gorm:"-" json:"has_certificate"`
}

// TableName overrides the table name
func (Company) TableName() string {
	return "companies"
}

// HasCredential reports whether a signing certificate is configured.
func (c *Company) HasCredential() bool {
	return len(c.Certificate) > 0 && c.CertificatePassword != ""
}

func (c *Company) AfterFind(tx *gorm.DB) error {
	c.HasCertificate = c.HasCredential()
	return nil
}
