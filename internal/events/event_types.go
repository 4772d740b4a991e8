package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderRedeemed    EventType = "order_redeemed"
	EventProductDelivered EventType = "product_delivered"
	EventTicketOpened     EventType = "ticket_opened"
	EventTicketClosed     EventType = "ticket_closed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderRedeemedPayload describes a completed invoice redemption.
type OrderRedeemedPayload struct {
	InvoiceID       string `json:"invoice_id"`
	GrantedToID     string `json:"granted_to_id"`
	GrantedToName   string `json:"granted_to_name"`
	ProductName     string `json:"product_name"`
	VariantName     string `json:"variant_name"`
	RedeemedByStaff bool   `json:"redeemed_by_staff"`
}

// ProductDeliveredPayload describes a file delivered through the code flow.
type ProductDeliveredPayload struct {
	RoleID      string `json:"role_id"`
	ProductName string `json:"product_name"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
}

// TicketOpenedPayload describes a newly opened support ticket.
type TicketOpenedPayload struct {
	TicketID   int64  `json:"ticket_id"`
	ChannelID  string `json:"channel_id"`
	OpenerID   string `json:"opener_id"`
	OpenerName string `json:"opener_name"`
}

// TicketClosedPayload describes a closed support ticket.
type TicketClosedPayload struct {
	TicketID    int64  `json:"ticket_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	OpenerID    string `json:"opener_id"`
	ClosedByID  string `json:"closed_by_id"`
	ClosedBy    string `json:"closed_by"`
}
