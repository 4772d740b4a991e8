package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/domain"
	"github.com/spec-kit/shopbot/internal/events"
	"github.com/spec-kit/shopbot/internal/observability"
	"github.com/spec-kit/shopbot/internal/platform"
	"github.com/spec-kit/shopbot/internal/repository"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// CloseTicketCustomID is the stable component id of the close control. It
// must not change between releases or buttons on old messages stop working.
const CloseTicketCustomID = "ticket:close"

// ChannelCreator creates, probes, and deletes ticket channels.
type ChannelCreator interface {
	CreateTicketChannel(ctx context.Context, spec platform.TicketChannelSpec) (string, error)
	ChannelExists(ctx context.Context, channelID string) bool
	DeleteChannel(ctx context.Context, channelID string) error
}

// ChannelMessenger posts messages into channels.
type ChannelMessenger interface {
	Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (string, error)
}

// TicketService manages the support ticket lifecycle: none -> open -> closed.
type TicketService struct {
	tickets      repository.TicketRepository
	channels     ChannelCreator
	messenger    ChannelMessenger
	dispatcher   events.Dispatcher
	categoryID   string
	staffRoleIDs []string
	logger       *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	Channels     ChannelCreator
	Messenger    ChannelMessenger
	Dispatcher   events.Dispatcher
	CategoryID   string
	StaffRoleIDs []string
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:      deps.TicketRepo,
		channels:     deps.Channels,
		messenger:    deps.Messenger,
		dispatcher:   deps.Dispatcher,
		categoryID:   deps.CategoryID,
		staffRoleIDs: deps.StaffRoleIDs,
		logger:       deps.Logger,
	}
}

// OpenTicket returns the opener's existing open ticket channel, or creates a
// ticket row, a private channel, the instructions message, and an audit
// event. The row is created first so the channel name carries a stable id.
func (s *TicketService) OpenTicket(ctx context.Context, openerID, openerName string) (channelID string, reused bool, err error) {
	existing, err := s.tickets.GetOpenByOpener(ctx, openerID)
	if err == nil && existing.ChannelID != nil && *existing.ChannelID != "" {
		// The stored channel id can be stale: channels get deleted out of
		// band, and a close that failed to update the row leaves an open row
		// behind. A dead channel must not be handed back.
		if s.channels.ChannelExists(ctx, *existing.ChannelID) {
			observability.Tickets.WithLabelValues("reused").Inc()
			return *existing.ChannelID, true, nil
		}
		s.logger.Warn("open ticket points at a missing channel; creating a new one",
			zap.Int64("ticket_id", existing.ID), zap.String("channel_id", *existing.ChannelID))
		if err := s.tickets.Close(ctx, existing.ID, time.Now().UTC()); err != nil {
			observability.SwallowedFailures.WithLabelValues("stale_ticket_close").Inc()
			s.logger.Error("failed to close stale ticket", zap.Int64("ticket_id", existing.ID), zap.Error(err))
		}
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("open-ticket lookup failed; creating a new ticket", zap.Error(err))
	}

	ticket := &domain.Ticket{OpenerID: openerID, Status: domain.TicketStatusOpen}
	persisted := true
	if err := s.tickets.Create(ctx, ticket); err != nil {
		// Last-resort id so the user still gets a channel. Collisions are
		// possible here; the row is simply absent from the ledger.
		persisted = false
		ticket.ID = time.Now().UTC().Unix()
		s.logger.Error("ticket insert failed; using time-based fallback id",
			zap.Int64("fallback_id", ticket.ID), zap.Error(err))
	}

	name := ticket.ChannelName()
	channelID, err = s.channels.CreateTicketChannel(ctx, platform.TicketChannelSpec{
		Name:         name,
		CategoryID:   s.categoryID,
		Topic:        fmt.Sprintf("Support ticket #%d for %s", ticket.ID, openerName),
		OpenerID:     openerID,
		StaffRoleIDs: s.staffRoleIDs,
	})
	if err != nil {
		return "", false, apperrors.MapError(err)
	}

	if persisted {
		binding := domain.TicketChannel{ChannelID: channelID, TicketID: ticket.ID, OpenerID: openerID}
		if err := s.tickets.BindChannel(ctx, binding); err != nil {
			observability.SwallowedFailures.WithLabelValues("ticket_channel_backfill").Inc()
			s.logger.Error("failed to bind ticket channel", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if _, err := s.messenger.Send(ctx, channelID, s.introMessage(openerID)); err != nil {
		observability.SwallowedFailures.WithLabelValues("ticket_intro").Inc()
		s.logger.Warn("failed to post ticket instructions", zap.String("channel_id", channelID), zap.Error(err))
	}

	observability.Tickets.WithLabelValues("opened").Inc()
	s.publish(ctx, events.Event{
		Type:    events.EventTicketOpened,
		ActorID: openerID,
		Payload: events.TicketOpenedPayload{
			TicketID:   ticket.ID,
			ChannelID:  channelID,
			OpenerID:   openerID,
			OpenerName: openerName,
		},
	})
	return channelID, false, nil
}

// AuthorizeClose verifies the requester may close the ticket bound to the
// channel. It has no side effects, so callers can reject before announcing
// anything.
func (s *TicketService) AuthorizeClose(ctx context.Context, channelID string, requester *discordgo.Member, requesterID string) (*domain.TicketChannel, error) {
	binding, err := s.tickets.ChannelOwnership(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("This can only be used in a ticket channel.", nil)
		}
		return nil, apperrors.MapError(err)
	}

	isStaff := s.requesterIsStaff(requester)
	isOpener := requesterID == binding.OpenerID
	if !isStaff && !isOpener {
		return nil, apperrors.NewForbidden("You don't have permission to close this ticket.")
	}
	return binding, nil
}

// CloseTicket closes the ticket bound to the channel. Only staff or the
// recorded opener may close; everyone else is rejected without side effects.
// The ledger update and the audit event precede the channel deletion, since
// the row is the only durable trace once the channel is gone.
func (s *TicketService) CloseTicket(ctx context.Context, channelID string, requester *discordgo.Member, requesterID, requesterName string) error {
	binding, err := s.AuthorizeClose(ctx, channelID, requester, requesterID)
	if err != nil {
		return err
	}

	if err := s.tickets.Close(ctx, binding.TicketID, time.Now().UTC()); err != nil {
		observability.SwallowedFailures.WithLabelValues("ticket_close_update").Inc()
		s.logger.Error("failed to mark ticket closed", zap.Int64("ticket_id", binding.TicketID), zap.Error(err))
	}

	observability.Tickets.WithLabelValues("closed").Inc()
	s.publish(ctx, events.Event{
		Type:    events.EventTicketClosed,
		ActorID: requesterID,
		Payload: events.TicketClosedPayload{
			TicketID:    binding.TicketID,
			ChannelID:   channelID,
			ChannelName: fmt.Sprintf("ticket-%04d", binding.TicketID),
			OpenerID:    binding.OpenerID,
			ClosedByID:  requesterID,
			ClosedBy:    requesterName,
		},
	})

	if err := s.channels.DeleteChannel(ctx, channelID); err != nil {
		observability.SwallowedFailures.WithLabelValues("ticket_channel_delete").Inc()
		s.logger.Error("failed to delete ticket channel", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

func (s *TicketService) requesterIsStaff(requester *discordgo.Member) bool {
	if requester == nil {
		return false
	}
	for _, roleID := range requester.Roles {
		for _, staffID := range s.staffRoleIDs {
			if roleID == staffID {
				return true
			}
		}
	}
	return false
}

func (s *TicketService) introMessage(openerID string) *discordgo.MessageSend {
	mentions := make([]string, 0, len(s.staffRoleIDs)+1)
	for _, roleID := range s.staffRoleIDs {
		mentions = append(mentions, "<@&"+roleID+">")
	}
	mentions = append(mentions, "<@"+openerID+">")

	embed := &discordgo.MessageEmbed{
		Title: "Support Ticket",
		Description: "Thanks for opening a ticket.\n\n" +
			"**To get set up, please post:**\n" +
			"- Your order id from the store\n" +
			"- What you purchased and the duration\n" +
			"- Any extra info staff asks for",
	}

	return &discordgo.MessageSend{
		Content: strings.Join(mentions, " "),
		Embeds:  []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Close Ticket",
						Style:    discordgo.DangerButton,
						CustomID: CloseTicketCustomID,
					},
				},
			},
		},
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}
