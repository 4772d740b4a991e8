package domain

import "time"

// RedemptionRecord is one row of the redemption ledger. A row is created on a
// successful invoice redemption and never deleted; the legacy code flow
// instead flips Redeemed/RedeemedBy on a pre-seeded row.
type RedemptionRecord struct {
	ID              int64
	RoleID          *string
	Redeemed        bool
	RedeemedBy      *string
	InvoiceID       *string
	ProductName     string
	VariantName     string
	DiscordUsername string
	RedeemedAt      *time.Time
	CreatedAt       time.Time
}

// OrderState classifies an order for staff inspection.
type OrderState string

const (
	OrderPaidRedeemed   OrderState = "PAID_REDEEMED"
	OrderPaidUnredeemed OrderState = "PAID_UNREDEEMED"
	OrderRefunded       OrderState = "REFUNDED"
	OrderCancelled      OrderState = "CANCELLED"
	OrderNotFound       OrderState = "NOT_FOUND"
	OrderNotPaid        OrderState = "NOT_PAID"
)
