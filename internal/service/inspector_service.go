package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/repository"
	"github.com/spec-kit/shopbot/internal/storefront"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// InspectorService classifies orders for staff visibility. It never mutates
// state; staff use it to reconcile drift between the chat platform and the
// ledger.
type InspectorService struct {
	ledger repository.RedemptionRepository
	store  InvoiceFetcher
}

// NewInspectorService constructs the service.
func NewInspectorService(ledger repository.RedemptionRepository, store InvoiceFetcher) *InspectorService {
	return &InspectorService{ledger: ledger, store: store}
}

// OrderReport combines ledger state with the live storefront view.
type OrderReport struct {
	InvoiceID string
	State     domain.OrderState
	Record    *domain.RedemptionRecord
	Invoice   *storefront.Invoice
}

// InspectOrder fetches the invoice fresh and pairs it with any ledger row.
func (s *InspectorService) InspectOrder(ctx context.Context, invoiceID string) (*OrderReport, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, apperrors.NewValidationError("order id required", nil)
	}
	if !s.store.Configured() {
		return nil, apperrors.NewNotConfigured("the storefront")
	}

	record, err := s.ledger.GetByInvoiceID(ctx, invoiceID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	report := &OrderReport{InvoiceID: invoiceID, Record: record}
	invoice := s.store.FetchInvoice(ctx, invoiceID)
	report.Invoice = invoice

	switch {
	case invoice == nil:
		report.State = domain.OrderNotFound
	case invoice.Refunded:
		report.State = domain.OrderRefunded
	case invoice.Cancelled:
		report.State = domain.OrderCancelled
	case !invoice.IsPaid():
		report.State = domain.OrderNotPaid
	case record != nil:
		report.State = domain.OrderPaidRedeemed
	default:
		report.State = domain.OrderPaidUnredeemed
	}
	return report, nil
}
