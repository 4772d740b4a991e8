package dto

import (
	"time"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/service"
)

// OrderReportResponse is the staff-facing view of one order.
type OrderReportResponse struct {
	InvoiceID string              `json:"invoice_id"`
	State     domain.OrderState   `json:"state"`
	Product   string              `json:"product,omitempty"`
	Variant   string              `json:"variant,omitempty"`
	Record    *RedemptionResponse `json:"record,omitempty"`
}

// RedemptionResponse is one ledger row.
type RedemptionResponse struct {
	ID              int64      `json:"id"`
	RoleID          *string    `json:"role_id,omitempty"`
	Redeemed        bool       `json:"redeemed"`
	RedeemedBy      *string    `json:"redeemed_by,omitempty"`
	InvoiceID       *string    `json:"invoice_id,omitempty"`
	ProductName     string     `json:"product_name"`
	VariantName     string     `json:"variant_name"`
	DiscordUsername string     `json:"discord_username"`
	RedeemedAt      *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TicketResponse is one ticket row.
type TicketResponse struct {
	ID        int64      `json:"id"`
	OpenerID  string     `json:"opener_id"`
	Status    string     `json:"status"`
	ChannelID *string    `json:"channel_id,omitempty"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// ListQuery captures pagination for collection endpoints.
type ListQuery struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// Normalize clamps pagination to sane bounds.
func (q *ListQuery) Normalize() {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// FromOrderReport converts a service report.
func FromOrderReport(report *service.OrderReport) OrderReportResponse {
	resp := OrderReportResponse{InvoiceID: report.InvoiceID, State: report.State}
	if report.Invoice != nil {
		resp.Product, resp.Variant = report.Invoice.ProductVariant()
	}
	if report.Record != nil {
		record := FromRedemptionRecord(*report.Record)
		resp.Record = &record
	}
	return resp
}

// FromRedemptionRecord converts a ledger row.
func FromRedemptionRecord(record domain.RedemptionRecord) RedemptionResponse {
	return RedemptionResponse{
		ID:              record.ID,
		RoleID:          record.RoleID,
		Redeemed:        record.Redeemed,
		RedeemedBy:      record.RedeemedBy,
		InvoiceID:       record.InvoiceID,
		ProductName:     record.ProductName,
		VariantName:     record.VariantName,
		DiscordUsername: record.DiscordUsername,
		RedeemedAt:      record.RedeemedAt,
		CreatedAt:       record.CreatedAt,
	}
}

// FromTicket converts a ticket row.
func FromTicket(ticket domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:        ticket.ID,
		OpenerID:  ticket.OpenerID,
		Status:    string(ticket.Status),
		ChannelID: ticket.ChannelID,
		OpenedAt:  ticket.OpenedAt,
		ClosedAt:  ticket.ClosedAt,
	}
}
