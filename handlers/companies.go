package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/verifactu"
	"gorm.io/gorm"
)

// ChainValidator is the part of the invoice service the company screens need.
type ChainValidator interface {
	ValidateChain(ctx context.Context, companyID uint) (verifactu.ChainResult, error)
}

type CompanyHandler struct {
	db                *gorm.DB
	chain             ChainValidator
	defaultSoftwareID string
}

func NewCompanyHandler(db *gorm.DB, chain ChainValidator, defaultSoftwareID string) *CompanyHandler {
	if defaultSoftwareID == "" {
		defaultSoftwareID = verifactu.DefaultSoftwareID
	}
	return &CompanyHandler{db: db, chain: chain, defaultSoftwareID: defaultSoftwareID}
}

type CompanyRequest struct {
	Name     string `json:"company_name" binding:"required"`
	CIF      string `json:"cif" binding:"required"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	BankIBAN string `json:"bank_iban"`
}

type VerifactuSettingsRequest struct {
	Enabled             bool    `json:"verifactu_enabled"`
	SoftwareID          string  `json:"verifactu_software_id"`
	SoftwareName        string  `json:"verifactu_software_name"`
	Certificate         *string `json:"certificate"` // base64 PKCS#12
	CertificatePassword string  `json:"certificate_password"`
	RemoveCertificate   bool    `json:"remove_certificate"`
}

func (h *CompanyHandler) ListCompanies(c *gin.Context) {
	var companies []models.Company
	if err := h.db.Order("name ASC").Find(&companies).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (h *CompanyHandler) loadCompany(c *gin.Context) (*models.Company, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var company models.Company
	if err := h.db.First(&company, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return nil, false
	}
	return &company, true
}

func (h *CompanyHandler) GetCompany(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	company := models.Company{
		Name:         strings.TrimSpace(req.Name),
		CIF:          strings.ToUpper(strings.TrimSpace(req.CIF)),
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        req.Email,
		BankIBAN:     req.BankIBAN,
		SoftwareID:   h.defaultSoftwareID,
		SoftwareName: models.DefaultSoftwareName,
	}
	if err := h.db.Create(&company).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}

	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.db.Model(company).Updates(map[string]interface{}{
		"name":      strings.TrimSpace(req.Name),
		"cif":       strings.ToUpper(strings.TrimSpace(req.CIF)),
		"address":   req.Address,
		"phone":     req.Phone,
		"email":     req.Email,
		"bank_iban": req.BankIBAN,
	}).Error
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.db.First(company, company.ID).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

// UpdateVerifactu switches chaining on or off and manages the signing
// certificate. A new certificate is only stored once it opens with the
// given passphrase.
func (h *CompanyHandler) UpdateVerifactu(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}

	var req VerifactuSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{
		"verifactu_enabled": req.Enabled,
	}
	if req.SoftwareID != "" {
		updates["software_id"] = req.SoftwareID
	}
	if req.SoftwareName != "" {
		updates["software_name"] = req.SoftwareName
	}

	response := gin.H{}
	switch {
	case req.RemoveCertificate:
		updates["certificate"] = nil
		updates["certificate_password"] = ""
	case req.Certificate != nil:
		bundle, err := base64.StdEncoding.DecodeString(*req.Certificate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate must be base64 encoded"})
			return
		}
		cert, err := verifactu.CheckCredential(&verifactu.Credential{Bundle: bundle, Password: req.CertificatePassword})
		if err != nil {
			respondError(c, err)
			return
		}
		updates["certificate"] = bundle
		updates["certificate_password"] = req.CertificatePassword
		response["certificate_subject"] = cert.Subject.String()
		response["certificate_expires"] = cert.NotAfter
	}

	if err := h.db.Model(company).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}

	if err := h.db.First(company, company.ID).Error; err != nil {
		respondError(c, err)
		return
	}
	response["company"] = company
	c.JSON(http.StatusOK, response)
}

func (h *CompanyHandler) DeleteCompany(c *gin.Context) {
	company, ok := h.loadCompany(c)
	if !ok {
		return
	}

	var invoices int64
	err := h.db.Unscoped().Model(&models.Invoice{}).Where("company_id = ?", company.ID).Count(&invoices).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if invoices > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Company has invoices and cannot be deleted"})
		return
	}

	if err := h.db.Delete(company).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company deleted"})
}

// ChainStatus validates the company's invoice chain on demand.
func (h *CompanyHandler) ChainStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.chain.ValidateChain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
