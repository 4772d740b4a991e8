package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for support tickets. The lifecycle
// is none -> open -> closed; closed is terminal.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is the durable record of a support channel. The channel itself is
// deleted on close, so this row becomes the only remaining trace.
type Ticket struct {
	ID        int64
	OpenerID  string
	Status    TicketStatus
	ChannelID *string
	OpenedAt  time.Time
	ClosedAt  *time.Time
}

// ChannelName derives the ticket channel name, zero-padded so channels sort
// alphabetically in the channel list.
func (t Ticket) ChannelName() string {
	return fmt.Sprintf("ticket-%04d", t.ID)
}

// TicketChannel maps a chat channel back to its ticket and opener. This is
// the structured replacement for encoding ownership in the channel topic.
type TicketChannel struct {
	ChannelID string
	TicketID  int64
	OpenerID  string
}
