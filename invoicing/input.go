package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/utils"
	"github.com/yourusername/facturas/verifactu"
)

const (
	dateLayout   = "2006-01-02"
	draftPrefix  = "BORRADOR-"
	maxVATRate   = 100
	maxNumberLen = 50
)

type ItemInput struct {
	ArticleID   *uint           `json:"article_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// InvoiceInput is the editable content of a draft or proforma. Any totals
// a client might send are ignored; they are always derived from the items.
type InvoiceInput struct {
	CompanyID     uint                 `json:"company_id"`
	InvoiceNumber string               `json:"invoice_number"`
	Date          string               `json:"date"`
	ClientName    string               `json:"client_name"`
	ClientCIF     string               `json:"client_cif"`
	ClientAddress string               `json:"client_address"`
	ClientType    string               `json:"client_type"`
	Notes         string               `json:"notes"`
	Status        models.InvoiceStatus `json:"status"`
	Items         []ItemInput          `json:"items"`
}

func (in *InvoiceInput) normalize(today time.Time, currentStatus models.InvoiceStatus) {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientCIF = strings.ToUpper(strings.TrimSpace(in.ClientCIF))
	in.Date = strings.TrimSpace(in.Date)
	if in.Date == "" {
		in.Date = today.Format(dateLayout)
	}
	if in.ClientType == "" {
		in.ClientType = models.ClientTypeCompany
	}
	if in.Status == "" {
		in.Status = currentStatus
	}
	for i := range in.Items {
		in.Items[i].Description = strings.TrimSpace(in.Items[i].Description)
	}
}

func (in *InvoiceInput) validate() error {
	if in.CompanyID == 0 {
		return invalid("company_id", "is required")
	}
	if in.Status != models.StatusDraft && in.Status != models.StatusProforma {
		return invalid("status", "must be %s or %s", models.StatusDraft, models.StatusProforma)
	}
	if verifactu.IsReservedNumber(in.InvoiceNumber) {
		return invalid("invoice_number", "%q is reserved for finalized invoices", in.InvoiceNumber)
	}
	if len(in.InvoiceNumber) > maxNumberLen {
		return invalid("invoice_number", "must be at most %d characters", maxNumberLen)
	}
	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return invalid("date", "must be a YYYY-MM-DD date")
	}
	if in.ClientName == "" {
		return invalid("client_name", "is required")
	}
	if in.ClientCIF == "" {
		return invalid("client_cif", "is required")
	}
	if in.ClientType != models.ClientTypeCompany && in.ClientType != models.ClientTypeIndividual {
		return invalid("client_type", "must be %s or %s", models.ClientTypeCompany, models.ClientTypeIndividual)
	}
	if len(in.Items) == 0 {
		return invalid("items", "at least one line item is required")
	}
	for i, item := range in.Items {
		switch {
		case item.Description == "":
			return invalid(itemField(i, "description"), "is required")
		case !item.Quantity.IsPositive():
			return invalid(itemField(i, "quantity"), "must be greater than zero")
		case !item.UnitPrice.IsPositive():
			return invalid(itemField(i, "unit_price"), "must be greater than zero")
		case item.VATRate.IsNegative() || item.VATRate.GreaterThan(decimal.NewFromInt(maxVATRate)):
			return invalid(itemField(i, "vat_rate"), "must be between 0 and %d", maxVATRate)
		}
	}
	return nil
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}

// apply copies the input onto invoice and recomputes every line and total.
func (in *InvoiceInput) apply(invoice *models.Invoice) {
	invoice.CompanyID = in.CompanyID
	invoice.InvoiceNumber = in.InvoiceNumber
	if invoice.InvoiceNumber == "" {
		invoice.InvoiceNumber = draftNumber()
	}
	invoice.Date = in.Date
	invoice.ClientName = in.ClientName
	invoice.ClientCIF = in.ClientCIF
	invoice.ClientAddress = in.ClientAddress
	invoice.ClientType = in.ClientType
	invoice.Notes = in.Notes
	invoice.Status = in.Status

	var totals utils.Totals
	invoice.Items = make([]models.InvoiceItem, 0, len(in.Items))
	for i, item := range in.Items {
		line := utils.ComputeLine(item.Quantity, item.UnitPrice, item.VATRate)
		totals.Add(line)
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ArticleID:        item.ArticleID,
			Description:      item.Description,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			VATRate:          item.VATRate,
			LineTotal:        line.Total,
			LineVAT:          line.VAT,
			LineTotalWithVAT: line.TotalWithVAT,
			SortOrder:        i,
		})
	}
	invoice.Subtotal = totals.Subtotal
	invoice.TotalVAT = totals.VAT
	invoice.Total = totals.Total
}

func draftNumber() string {
	return draftPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
