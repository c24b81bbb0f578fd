package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/facturas/handlers"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

func newInvoiceRouter(svc *MockInvoiceService, retries int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewInvoiceHandler(svc, retries)

	r := gin.New()
	r.GET("/invoices", h.ListInvoices)
	r.GET("/invoices/:id", h.GetInvoice)
	r.POST("/invoices", h.CreateInvoice)
	r.PUT("/invoices/:id", h.UpdateInvoice)
	r.DELETE("/invoices/:id", h.DeleteInvoice)
	r.POST("/invoices/:id/finalize", h.FinalizeInvoice)
	r.POST("/invoices/:id/cancel", h.CancelInvoice)
	r.GET("/invoices/:id/verify", h.VerifyInvoice)
	r.GET("/invoices/:id/qr", h.InvoiceQR)
	r.GET("/invoices/:id/audit", h.InvoiceAudit)
	return r
}

func serve(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestInvoiceHandler_CreateInvoice(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)

	created := &models.Invoice{ID: 7, InvoiceNumber: "BORRADOR-1A2B3C4D", Status: models.StatusDraft}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in invoicing.InvoiceInput) bool {
		return in.CompanyID == 1 && in.ClientName == "Cliente SL" && len(in.Items) == 1
	})).Return(created, nil)

	w := serve(r, "POST", "/invoices", map[string]interface{}{
		"company_id":  1,
		"client_name": "Cliente SL",
		"client_cif":  "B12345678",
		"items": []map[string]interface{}{
			{"description": "Servicio", "quantity": "1", "unit_price": "100", "vat_rate": "21"},
		},
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "draft", body["effective_status"])
	assert.Equal(t, "BORRADOR-1A2B3C4D", body["invoice_number"])
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_CreateInvoice_BadJSON(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)

	req, _ := http.NewRequest("POST", "/invoices", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{"Validation", &invoicing.ValidationError{Field: "items", Message: "at least one item is required"}, http.StatusBadRequest, "ValidationError"},
		{"Not Found", &invoicing.NotFoundError{Entity: "invoice", ID: 9}, http.StatusNotFound, "NotFound"},
		{"Invalid State", &invoicing.StateError{Op: "finalize", Status: models.StatusFinal}, http.StatusConflict, "InvalidState"},
		{"Signing", &verifactu.SigningError{Reason: verifactu.ReasonBadPassphrase}, http.StatusUnprocessableEntity, "SigningError"},
		{"Internal", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInvoiceService)
			r := newInvoiceRouter(svc, 0)
			svc.On("Finalize", mock.Anything, uint(9)).Return(nil, tt.err)

			w := serve(r, "POST", "/invoices/9/finalize", nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["code"])
			} else {
				assert.Equal(t, "Internal server error", body["error"])
			}
		})
	}
}

func TestInvoiceHandler_FinalizeRetriesConflicts(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 3)

	conflict := &invoicing.SequenceConflictError{CompanyID: 1, Err: store.ErrSequenceConflict}
	seq := 4
	final := &models.Invoice{ID: 3, InvoiceNumber: "VF2026-004", InvoiceSequence: &seq, Status: models.StatusFinal}
	svc.On("Finalize", mock.Anything, uint(3)).Return(nil, conflict).Twice()
	svc.On("Finalize", mock.Anything, uint(3)).Return(final, nil).Once()

	w := serve(r, "POST", "/invoices/3/finalize", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "VF2026-004", decode(t, w)["invoice_number"])
	svc.AssertNumberOfCalls(t, "Finalize", 3)
}

func TestInvoiceHandler_FinalizeGivesUpAfterRetries(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 1)

	conflict := &invoicing.SequenceConflictError{CompanyID: 1, Err: store.ErrSequenceConflict}
	svc.On("Finalize", mock.Anything, uint(3)).Return(nil, conflict)

	w := serve(r, "POST", "/invoices/3/finalize", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SequenceConflict", decode(t, w)["code"])
	svc.AssertNumberOfCalls(t, "Finalize", 2)
}

func TestInvoiceHandler_FinalizeDoesNotRetryStateErrors(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 3)
	svc.On("Finalize", mock.Anything, uint(3)).Return(nil, &invoicing.StateError{Op: "finalize", Status: models.StatusFinal})

	w := serve(r, "POST", "/invoices/3/finalize", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	svc.AssertNumberOfCalls(t, "Finalize", 1)
}

func TestInvoiceHandler_CancelInvoice(t *testing.T) {
	t.Run("Missing Reason", func(t *testing.T) {
		svc := new(MockInvoiceService)
		r := newInvoiceRouter(svc, 0)

		w := serve(r, "POST", "/invoices/2/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = serve(r, "POST", "/invoices/2/cancel", handlers.CancelInvoiceRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		svc.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Given Reason", func(t *testing.T) {
		svc := new(MockInvoiceService)
		r := newInvoiceRouter(svc, 0)
		cancelled := &models.Invoice{ID: 2, Status: models.StatusFinal, IsCancelled: true, CancellationReason: "Duplicada"}
		svc.On("Cancel", mock.Anything, uint(2), "Duplicada").Return(cancelled, nil)

		w := serve(r, "POST", "/invoices/2/cancel", handlers.CancelInvoiceRequest{Reason: "Duplicada"})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestInvoiceHandler_ListInvoices(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)

	yes := true
	expected := store.InvoiceFilter{
		CompanyID: 2,
		Client:    "acme",
		Status:    "final",
		Verifactu: &yes,
		Limit:     10,
	}
	svc.On("List", mock.Anything, expected).Return([]models.Invoice{
		{ID: 1, InvoiceNumber: "VF2026-001", Status: models.StatusFinal},
		{ID: 2, InvoiceNumber: "VF2026-002", Status: models.StatusFinal, IsCancelled: true},
	}, nil)

	w := serve(r, "GET", "/invoices?company_id=2&client=acme&status=final&verifactu=yes&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "final", body[0]["effective_status"])
	assert.Equal(t, "cancelled", body[1]["effective_status"])
	svc.AssertExpectations(t)
}

func TestInvoiceHandler_ListInvoices_BadCompany(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)

	w := serve(r, "GET", "/invoices?company_id=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_InvalidID(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)

	for _, path := range []string{"/invoices/abc", "/invoices/0"} {
		w := serve(r, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestInvoiceHandler_InvoiceQR(t *testing.T) {
	t.Run("No Payload", func(t *testing.T) {
		svc := new(MockInvoiceService)
		r := newInvoiceRouter(svc, 0)
		svc.On("Get", mock.Anything, uint(5)).Return(&models.Invoice{ID: 5, Status: models.StatusDraft}, nil)

		w := serve(r, "GET", "/invoices/5/qr", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PNG", func(t *testing.T) {
		svc := new(MockInvoiceService)
		r := newInvoiceRouter(svc, 0)
		payload := "https://sede.agenciatributaria.gob.es/verifactu?nif=B12345678&num=VF2026-001"
		svc.On("Get", mock.Anything, uint(5)).Return(&models.Invoice{ID: 5, Status: models.StatusFinal, QRPayload: &payload}, nil)

		w := serve(r, "GET", "/invoices/5/qr?size=128", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
	})
}

func TestInvoiceHandler_VerifyInvoice(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)
	svc.On("Verify", mock.Anything, uint(4)).Return(&invoicing.VerifyResult{
		InvoiceID: 4,
		Verified:  false,
		Message:   "Stored hash does not match invoice data",
	}, nil)

	w := serve(r, "GET", "/invoices/4/verify", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["verified"])
	assert.Equal(t, "Stored hash does not match invoice data", body["message"])
}

func TestInvoiceHandler_DeleteInvoice(t *testing.T) {
	svc := new(MockInvoiceService)
	r := newInvoiceRouter(svc, 0)
	svc.On("Hide", mock.Anything, uint(8)).Return(&invoicing.StateError{Op: "delete", Status: models.StatusFinal}).Once()
	svc.On("Hide", mock.Anything, uint(9)).Return(nil).Once()

	assert.Equal(t, http.StatusConflict, serve(r, "DELETE", "/invoices/8", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, "DELETE", "/invoices/9", nil).Code)
	svc.AssertExpectations(t)
}
