package bot

import "github.com/bwmarrin/discordgo"

// ActionKind tags the interaction variants the bot understands.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionOpenRedeemModal
	ActionSubmitRedeem
	ActionOpenTicket
	ActionCloseTicket
	ActionRedeemProduct
	ActionStaffRedeem
	ActionCheckOrder
	ActionShowDashboard
)

// Action is a decoded interaction: one kind plus the metadata that kind
// needs. Dispatch consumes Actions without touching the event loop, so the
// whole command surface is testable against fakes.
type Action struct {
	Kind ActionKind

	// Actor is the interacting member.
	Actor     *discordgo.Member
	ActorID   string
	ActorName string

	// ChannelID is where the interaction happened.
	ChannelID string

	// InvoiceID carries the order id for redeem/checkorder kinds.
	InvoiceID string

	// TargetUserID receives the role for staff-issued redemptions.
	TargetUserID string

	// RoleID identifies the product button for ActionRedeemProduct.
	RoleID string
}
