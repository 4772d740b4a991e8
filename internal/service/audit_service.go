package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/events"
	"github.com/spec-kit/shopbot/internal/observability"
)

const auditEmbedColor = 0x489BF3

// EmbedSender posts embeds to a channel.
type EmbedSender interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// AuditService subscribes to domain events and mirrors them into the audit
// log channel. Posting is best-effort: a failed audit message is counted and
// logged but never fails the workflow that emitted it.
type AuditService struct {
	dispatcher   events.Dispatcher
	sender       EmbedSender
	logChannelID string
	logger       *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, sender EmbedSender, logChannelID string, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher:   dispatcher,
		sender:       sender,
		logChannelID: logChannelID,
		logger:       logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventOrderRedeemed, a.handleOrderRedeemed)
	a.dispatcher.Subscribe(events.EventProductDelivered, a.handleProductDelivered)
	a.dispatcher.Subscribe(events.EventTicketOpened, a.handleTicketOpened)
	a.dispatcher.Subscribe(events.EventTicketClosed, a.handleTicketClosed)
}

func (a *AuditService) handleOrderRedeemed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderRedeemedPayload)
	if !ok {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title: "Order Redeemed",
		Color: auditEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Redeemed By", Value: mention(event.ActorID)},
			{Name: "Granted To", Value: fmt.Sprintf("%s (%s)", mention(payload.GrantedToID), payload.GrantedToName)},
			{Name: "Product", Value: payload.ProductName},
			{Name: "Variant", Value: payload.VariantName},
			{Name: "Order ID", Value: payload.InvoiceID},
		},
	}
	a.post(ctx, embed)
	return nil
}

func (a *AuditService) handleProductDelivered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ProductDeliveredPayload)
	if !ok {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title: "Product Delivered",
		Color: auditEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", mention(payload.UserID), payload.Username)},
			{Name: "Product", Value: payload.ProductName},
			{Name: "Role", Value: fmt.Sprintf("<@&%s>", payload.RoleID)},
		},
	}
	a.post(ctx, embed)
	return nil
}

func (a *AuditService) handleTicketOpened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketOpenedPayload)
	if !ok {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title: "Ticket Opened",
		Color: auditEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket #", Value: fmt.Sprintf("`%d`", payload.TicketID), Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", payload.ChannelID), Inline: true},
			{Name: "Opened By", Value: fmt.Sprintf("%s (%s)", mention(payload.OpenerID), payload.OpenerName)},
		},
	}
	a.post(ctx, embed)
	return nil
}

func (a *AuditService) handleTicketClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title: "Ticket Closed",
		Color: auditEmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket", Value: fmt.Sprintf("`%s`", payload.ChannelName), Inline: true},
			{Name: "Ticket #", Value: fmt.Sprintf("`%d`", payload.TicketID), Inline: true},
			{Name: "Opened By", Value: mention(payload.OpenerID)},
			{Name: "Closed By", Value: fmt.Sprintf("%s (%s)", mention(payload.ClosedByID), payload.ClosedBy)},
		},
	}
	a.post(ctx, embed)
	return nil
}

func (a *AuditService) post(ctx context.Context, embed *discordgo.MessageEmbed) {
	if a.logChannelID == "" {
		return
	}
	if err := a.sender.SendEmbed(ctx, a.logChannelID, embed); err != nil {
		observability.SwallowedFailures.WithLabelValues("audit_log").Inc()
		a.logger.Warn("failed to post audit embed", zap.String("title", embed.Title), zap.Error(err))
	}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}
