package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/facturas/invoicing"
	"github.com/yourusername/facturas/models"
	"github.com/yourusername/facturas/store"
	"github.com/yourusername/facturas/verifactu"
)

// MockInvoiceService
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) invoice(args mock.Arguments) (*models.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Create(ctx context.Context, in invoicing.InvoiceInput) (*models.Invoice, error) {
	return m.invoice(m.Called(ctx, in))
}

func (m *MockInvoiceService) Update(ctx context.Context, id uint, in invoicing.InvoiceInput) (*models.Invoice, error) {
	return m.invoice(m.Called(ctx, id, in))
}

func (m *MockInvoiceService) Finalize(ctx context.Context, id uint) (*models.Invoice, error) {
	return m.invoice(m.Called(ctx, id))
}

func (m *MockInvoiceService) Cancel(ctx context.Context, id uint, reason string) (*models.Invoice, error) {
	return m.invoice(m.Called(ctx, id, reason))
}

func (m *MockInvoiceService) Hide(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return m.invoice(m.Called(ctx, id))
}

func (m *MockInvoiceService) List(ctx context.Context, filter store.InvoiceFilter) ([]models.Invoice, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Verify(ctx context.Context, id uint) (*invoicing.VerifyResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.VerifyResult), args.Error(1)
}

func (m *MockInvoiceService) AuditTrail(ctx context.Context, id uint) ([]models.AuditLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditLog), args.Error(1)
}

func (m *MockInvoiceService) ValidateChain(ctx context.Context, companyID uint) (verifactu.ChainResult, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).(verifactu.ChainResult), args.Error(1)
}
