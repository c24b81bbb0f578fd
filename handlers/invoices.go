package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

// InvoiceService is the lifecycle manager as seen by the HTTP layer.
type InvoiceService interface {
	Create(ctx context.Context, in invoicing.InvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, id uint, in invoicing.InvoiceInput) (*models.Invoice, error)
	Finalize(ctx context.Context, id uint) (*models.Invoice, error)
	Cancel(ctx context.Context, id uint, reason string) (*models.Invoice, error)
	Hide(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	List(ctx context.Context, filter store.InvoiceFilter) ([]models.Invoice, error)
	Verify(ctx context.Context, id uint) (*invoicing.VerifyResult, error)
	AuditTrail(ctx context.Context, id uint) ([]models.AuditLog, error)
	ValidateChain(ctx context.Context, companyID uint) (verifactu.ChainResult, error)
}

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

type InvoiceHandler struct {
	service         InvoiceService
	finalizeRetries int
}

func NewInvoiceHandler(service InvoiceService, finalizeRetries int) *InvoiceHandler {
	return &InvoiceHandler{service: service, finalizeRetries: finalizeRetries}
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// invoiceResponse adds the derived status to the stored invoice.
type invoiceResponse struct {
	*models.Invoice
	EffectiveStatus models.InvoiceStatus `json:"effective_status"`
}

func respondInvoice(c *gin.Context, status int, invoice *models.Invoice) {
	c.JSON(status, invoiceResponse{Invoice: invoice, EffectiveStatus: invoice.EffectiveStatus()})
}

// ListInvoices supports the filters company_id, date_from, date_to, client,
// invoice_number, client_type, verifactu (yes/no), status, limit and offset.
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := store.InvoiceFilter{
		DateFrom:      c.Query("date_from"),
		DateTo:        c.Query("date_to"),
		Client:        c.Query("client"),
		InvoiceNumber: c.Query("invoice_number"),
		ClientType:    c.Query("client_type"),
		Status:        c.Query("status"),
	}
	if v := c.Query("company_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company_id"})
			return
		}
		filter.CompanyID = uint(id)
	}
	switch c.Query("verifactu") {
	case "yes", "true":
		yes := true
		filter.Verifactu = &yes
	case "no", "false":
		no := false
		filter.Verifactu = &no
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	invoices, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		response = append(response, invoiceResponse{Invoice: &invoices[i], EffectiveStatus: invoices[i].EffectiveStatus()})
	}
	c.JSON(http.StatusOK, response)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondInvoice(c, http.StatusOK, invoice)
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req invoicing.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondInvoice(c, http.StatusCreated, invoice)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req invoicing.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondInvoice(c, http.StatusOK, invoice)
}

// DeleteInvoice hides a draft or proforma.
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Hide(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// FinalizeInvoice retries on sequence conflicts, which only happen when
// another instance finalized for the same company at the same moment.
func (h *InvoiceHandler) FinalizeInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var invoice *models.Invoice
	err := store.WithRetries(func() error {
		var err error
		invoice, err = h.service.Finalize(c.Request.Context(), id)
		return err
	}, h.finalizeRetries, store.IsConflict)
	if err != nil {
		respondError(c, err)
		return
	}
	respondInvoice(c, http.StatusOK, invoice)
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A cancellation reason is required"})
		return
	}

	invoice, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondInvoice(c, http.StatusOK, invoice)
}

func (h *InvoiceHandler) VerifyInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Verify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// InvoiceQR renders the verification QR code as PNG, ?size= in pixels.
func (h *InvoiceHandler) InvoiceQR(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if invoice.QRPayload == nil || *invoice.QRPayload == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice has no QR code"})
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultQRSize)))
	if err != nil || size < 64 || size > maxQRSize {
		size = defaultQRSize
	}

	png, err := verifactu.QRCodePNG(*invoice.QRPayload, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *InvoiceHandler) InvoiceAudit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.AuditTrail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
