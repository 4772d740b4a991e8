package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/panel"
	"github.com/spec-kit/shopbot/internal/service"
)

// interactionTimeout bounds the work behind a single interaction. Deferred
// responses give us up to fifteen minutes, but nothing here should take more
// than the storefront timeout plus a few REST calls.
const interactionTimeout = 30 * time.Second

// DecodeInteraction turns a raw interaction event into an Action. Unknown
// commands and component ids decode to ActionUnknown.
func DecodeInteraction(ic *discordgo.InteractionCreate) Action {
	action := Action{Kind: ActionUnknown}
	if ic.Member != nil {
		action.Actor = ic.Member
		if ic.Member.User != nil {
			action.ActorID = ic.Member.User.ID
			action.ActorName = ic.Member.User.Username
		}
	} else if ic.User != nil {
		action.ActorID = ic.User.ID
		action.ActorName = ic.User.Username
	}
	action.ChannelID = ic.ChannelID

	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		decodeCommand(ic.ApplicationCommandData(), &action)
	case discordgo.InteractionMessageComponent:
		decodeComponent(ic.MessageComponentData(), &action)
	case discordgo.InteractionModalSubmit:
		decodeModal(ic.ModalSubmitData(), &action)
	}
	return action
}

func decodeCommand(data discordgo.ApplicationCommandInteractionData, action *Action) {
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}
	switch data.Name {
	case CommandRedeem:
		action.Kind = ActionStaffRedeem
		if opt, ok := options[OptionOrderID]; ok {
			action.InvoiceID = opt.StringValue()
		}
		if opt, ok := options[OptionUser]; ok {
			if user := opt.UserValue(nil); user != nil {
				action.TargetUserID = user.ID
			}
		}
	case CommandCheckOrder:
		action.Kind = ActionCheckOrder
		if opt, ok := options[OptionOrderID]; ok {
			action.InvoiceID = opt.StringValue()
		}
	case CommandDashboard:
		action.Kind = ActionShowDashboard
	}
}

func decodeComponent(data discordgo.MessageComponentInteractionData, action *Action) {
	switch data.CustomID {
	case panel.RedeemOrderButtonID:
		action.Kind = ActionOpenRedeemModal
	case panel.OpenTicketButtonID:
		action.Kind = ActionOpenTicket
	case service.CloseTicketCustomID:
		action.Kind = ActionCloseTicket
	default:
		if roleID, ok := panel.ParseProductCustomID(data.CustomID); ok {
			action.Kind = ActionRedeemProduct
			action.RoleID = roleID
		}
	}
}

func decodeModal(data discordgo.ModalSubmitInteractionData, action *Action) {
	if data.CustomID != panel.RedeemModalID {
		return
	}
	action.Kind = ActionSubmitRedeem
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if !ok {
				continue
			}
			if input.CustomID == panel.OrderIDInputID {
				action.InvoiceID = input.Value
			}
		}
	}
}

// needsDefer reports whether the action does network work and must be
// acknowledged before the three second interaction deadline.
func needsDefer(kind ActionKind) bool {
	switch kind {
	case ActionSubmitRedeem, ActionStaffRedeem, ActionCheckOrder,
		ActionOpenTicket, ActionRedeemProduct:
		return true
	}
	return false
}

// Handler bridges gateway interaction events and the dispatcher.
type Handler struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewHandler constructs the interaction handler.
func NewHandler(dispatcher *Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger}
}

// HandleInteraction is registered on the gateway session. It decodes the
// event, acknowledges within the platform deadline, runs the action, and
// delivers the outcome as an ephemeral follow-up.
func (h *Handler) HandleInteraction(session *discordgo.Session, ic *discordgo.InteractionCreate) {
	action := DecodeInteraction(ic)
	if action.Kind == ActionUnknown {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	// Modal opens must be the first and only response.
	if action.Kind == ActionOpenRedeemModal {
		resp := h.dispatcher.Dispatch(ctx, action)
		if resp.Modal == nil {
			return
		}
		h.respond(session, ic, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: resp.Modal,
		})
		return
	}

	// Ticket close deletes the channel the button lives in, so the ack must
	// land before the channel disappears. Permissions are checked before
	// the ack so rejected closers only ever see the rejection.
	if action.Kind == ActionCloseTicket {
		if resp, ok := h.dispatcher.AuthorizeCloseTicket(ctx, action); !ok {
			h.respond(session, ic, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: responseData(resp),
			})
			return
		}
		h.respond(session, ic, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "Closing ticket.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		resp := h.dispatcher.Dispatch(ctx, action)
		if resp.Content != "" && resp.Content != "Ticket closed." {
			h.followUp(session, ic, resp)
		}
		return
	}

	deferred := false
	if needsDefer(action.Kind) {
		h.respond(session, ic, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
		})
		deferred = true
	}

	resp := h.dispatcher.Dispatch(ctx, action)
	if deferred {
		h.followUp(session, ic, resp)
		return
	}
	h.respond(session, ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(resp),
	})
}

func (h *Handler) respond(session *discordgo.Session, ic *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := session.InteractionRespond(ic.Interaction, resp); err != nil {
		h.logger.Warn("interaction respond failed", zap.Error(err))
	}
}

func (h *Handler) followUp(session *discordgo.Session, ic *discordgo.InteractionCreate, resp Response) {
	params := &discordgo.WebhookParams{
		Content:    resp.Content,
		Embeds:     resp.Embeds,
		Components: resp.Components,
	}
	if resp.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := session.FollowupMessageCreate(ic.Interaction, true, params); err != nil {
		h.logger.Warn("interaction follow-up failed", zap.Error(err))
	}
}

func responseData(resp Response) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    resp.Content,
		Embeds:     resp.Embeds,
		Components: resp.Components,
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}
