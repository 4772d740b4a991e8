package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/config"
	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/panel"
	"github.com/spec-kit/shopbot/internal/service"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// Response is what an Action produces: either a modal to show or a message,
// ephemeral unless stated otherwise.
type Response struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool
	Modal      *discordgo.InteractionResponseData
}

// Dispatcher routes decoded Actions to services. It owns no protocol state,
// which keeps every command path testable without a live gateway.
type Dispatcher struct {
	redemptions *service.RedemptionService
	tickets     *service.TicketService
	inspector   *service.InspectorService
	discord     config.DiscordConfig
	panelCfg    config.PanelConfig
	shopURL     string
	logger      *zap.Logger
}

// NewDispatcher constructs the dispatcher.
func NewDispatcher(
	redemptions *service.RedemptionService,
	tickets *service.TicketService,
	inspector *service.InspectorService,
	discord config.DiscordConfig,
	panelCfg config.PanelConfig,
	shopURL string,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		redemptions: redemptions,
		tickets:     tickets,
		inspector:   inspector,
		discord:     discord,
		panelCfg:    panelCfg,
		shopURL:     shopURL,
		logger:      logger,
	}
}

// Dispatch executes one Action and renders its user-facing outcome. Errors
// never escape: they are mapped to the ephemeral message for their code, with
// internals logged server-side only.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action) Response {
	var (
		resp Response
		err  error
	)
	switch action.Kind {
	case ActionOpenRedeemModal:
		resp = Response{Modal: redeemModal()}
	case ActionSubmitRedeem:
		resp, err = d.submitRedeem(ctx, action)
	case ActionStaffRedeem:
		resp, err = d.staffRedeem(ctx, action)
	case ActionCheckOrder:
		resp, err = d.checkOrder(ctx, action)
	case ActionOpenTicket:
		resp, err = d.openTicket(ctx, action)
	case ActionCloseTicket:
		resp, err = d.closeTicket(ctx, action)
	case ActionRedeemProduct:
		resp, err = d.redeemProduct(ctx, action)
	case ActionShowDashboard:
		resp, err = d.showDashboard()
	default:
		resp = Response{Content: "Unknown interaction.", Ephemeral: true}
	}
	if err != nil {
		return d.errorResponse(action, err)
	}
	return resp
}

func (d *Dispatcher) submitRedeem(ctx context.Context, action Action) (Response, error) {
	_, err := d.redemptions.RedeemInvoice(ctx, service.RedeemInvoiceInput{
		InvoiceID:    action.InvoiceID,
		TargetUserID: action.ActorID,
		ActorID:      action.ActorID,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Content:   "Order confirmed. The access role has been applied.\nPlease open a ticket so staff can get you set up.",
		Ephemeral: true,
	}, nil
}

func (d *Dispatcher) staffRedeem(ctx context.Context, action Action) (Response, error) {
	_, err := d.redemptions.RedeemInvoice(ctx, service.RedeemInvoiceInput{
		InvoiceID:    action.InvoiceID,
		TargetUserID: action.TargetUserID,
		ActorID:      action.ActorID,
		ByStaff:      true,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Content:   fmt.Sprintf("Confirmed order and granted access to <@%s>.", action.TargetUserID),
		Ephemeral: true,
	}, nil
}

func (d *Dispatcher) checkOrder(ctx context.Context, action Action) (Response, error) {
	if action.Actor == nil || !d.discord.HasStaffRole(action.Actor.Roles) {
		return Response{}, apperrors.NewForbidden("This command is staff-only.")
	}
	report, err := d.inspector.InspectOrder(ctx, action.InvoiceID)
	if err != nil {
		return Response{}, err
	}
	return Response{Embeds: []*discordgo.MessageEmbed{orderReportEmbed(report)}, Ephemeral: true}, nil
}

func (d *Dispatcher) openTicket(ctx context.Context, action Action) (Response, error) {
	channelID, reused, err := d.tickets.OpenTicket(ctx, action.ActorID, action.ActorName)
	if err != nil {
		return Response{}, err
	}
	content := fmt.Sprintf("Ticket ready: <#%s>", channelID)
	if reused {
		content = fmt.Sprintf("You already have an open ticket: <#%s>", channelID)
	}
	return Response{Content: content, Ephemeral: true}, nil
}

// AuthorizeCloseTicket runs the close permission check without side effects
// so the protocol layer can reject before acknowledging anything.
func (d *Dispatcher) AuthorizeCloseTicket(ctx context.Context, action Action) (Response, bool) {
	if _, err := d.tickets.AuthorizeClose(ctx, action.ChannelID, action.Actor, action.ActorID); err != nil {
		return d.errorResponse(action, err), false
	}
	return Response{}, true
}

func (d *Dispatcher) closeTicket(ctx context.Context, action Action) (Response, error) {
	err := d.tickets.CloseTicket(ctx, action.ChannelID, action.Actor, action.ActorID, action.ActorName)
	if err != nil {
		return Response{}, err
	}
	return Response{Content: "Ticket closed.", Ephemeral: true}, nil
}

func (d *Dispatcher) redeemProduct(ctx context.Context, action Action) (Response, error) {
	buttons, err := panel.Load(d.panelCfg.ButtonConfigPath, d.logger)
	if err != nil {
		d.logger.Error("failed to load button config", zap.Error(err))
		return Response{}, apperrors.NewInternalError(err)
	}
	button, ok := panel.FindByRole(buttons, action.RoleID)
	if !ok {
		return Response{}, apperrors.NewValidationError("This product is no longer on the dashboard. It may have just been updated; try again.", nil)
	}
	if err := d.redemptions.RedeemProduct(ctx, service.RedeemProductInput{
		RoleID:      button.RedeemRole,
		ProductName: button.Name,
		ProductPath: button.ProductPath,
		UserID:      action.ActorID,
	}); err != nil {
		return Response{}, err
	}
	return Response{Content: "Product redeemed and sent to your DMs.", Ephemeral: true}, nil
}

func (d *Dispatcher) showDashboard() (Response, error) {
	buttons, err := panel.Load(d.panelCfg.ButtonConfigPath, d.logger)
	if err != nil {
		d.logger.Error("failed to load button config", zap.Error(err))
		return Response{}, apperrors.NewInternalError(err)
	}
	msg := panel.DashboardMessage(buttons)
	return Response{
		Embeds:     msg.Embeds,
		Components: msg.Components,
		Ephemeral:  true,
	}, nil
}

func (d *Dispatcher) errorResponse(action Action, err error) Response {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code == "INTERNAL_ERROR" {
		d.logger.Error("interaction failed",
			zap.Int("kind", int(action.Kind)),
			zap.String("actor_id", action.ActorID),
			zap.Error(domainErr))
		return Response{Content: "Something went wrong while processing this. Please try again or contact staff.", Ephemeral: true}
	}
	return Response{Content: domainErr.Message, Ephemeral: true}
}

func redeemModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: panel.RedeemModalID,
		Title:    "Redeem Order ID",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    panel.OrderIDInputID,
						Label:       "Order / Invoice ID",
						Style:       discordgo.TextInputShort,
						Placeholder: "Paste your order or invoice id here",
						Required:    true,
						MaxLength:   128,
					},
				},
			},
		},
	}
}

func orderReportEmbed(report *service.OrderReport) *discordgo.MessageEmbed {
	var summary string
	switch report.State {
	case domain.OrderPaidRedeemed:
		summary = "Paid and already redeemed."
	case domain.OrderPaidUnredeemed:
		summary = "Paid and not yet redeemed."
	case domain.OrderRefunded:
		summary = "Refunded."
	case domain.OrderCancelled:
		summary = "Cancelled."
	case domain.OrderNotPaid:
		summary = "Not paid."
	default:
		summary = "Not found on the storefront."
	}

	embed := &discordgo.MessageEmbed{
		Title: "Order Check",
		Color: auditColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Order ID", Value: report.InvoiceID, Inline: true},
			{Name: "State", Value: summary, Inline: true},
		},
	}
	if report.Record != nil {
		redeemedBy := "unknown"
		if report.Record.RedeemedBy != nil {
			redeemedBy = fmt.Sprintf("<@%s>", *report.Record.RedeemedBy)
		}
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Product", Value: report.Record.ProductName, Inline: true},
			&discordgo.MessageEmbedField{Name: "Redeemed By", Value: redeemedBy, Inline: true},
		)
	}
	return embed
}

const auditColor = 0x489BF3
