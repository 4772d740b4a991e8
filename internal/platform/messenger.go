package platform

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/observability"
	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// MessageSession is the slice of the gateway session the messenger needs.
type MessageSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Messenger sends channel messages, direct messages, and prunes panels.
type Messenger struct {
	session   MessageSession
	botUserID string
	logger    *zap.Logger
}

// NewMessenger constructs a messenger. botUserID identifies the bot's own
// messages during pruning.
func NewMessenger(session MessageSession, botUserID string, logger *zap.Logger) *Messenger {
	return &Messenger{session: session, botUserID: botUserID, logger: logger}
}

// Send posts a message and returns its id.
func (m *Messenger) Send(ctx context.Context, channelID string, data *discordgo.MessageSend) (string, error) {
	msg, err := m.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// SendEmbed posts a bare embed message.
func (m *Messenger) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := m.Send(ctx, channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	return err
}

// PruneBotMessages deletes the bot's own messages among the channel's most
// recent `limit`. Failures are swallowed: a stale panel message is annoying,
// not fatal.
func (m *Messenger) PruneBotMessages(ctx context.Context, channelID string, limit int) {
	msgs, err := m.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		observability.SwallowedFailures.WithLabelValues("panel_prune").Inc()
		m.logger.Warn("failed to list channel messages for pruning", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	for _, msg := range msgs {
		if msg.Author == nil || msg.Author.ID != m.botUserID {
			continue
		}
		if err := m.session.ChannelMessageDelete(channelID, msg.ID, discordgo.WithContext(ctx)); err != nil {
			observability.SwallowedFailures.WithLabelValues("panel_prune").Inc()
			m.logger.Warn("failed to delete stale panel message", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

// DMFile delivers a file to a user's direct messages. A recipient whose DMs
// are closed yields a DELIVERY_BLOCKED error with instructions for the user.
func (m *Messenger) DMFile(ctx context.Context, userID, content, filename string, file io.Reader) error {
	channel, err := m.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = m.session.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: content,
		Files:   []*discordgo.File{{Name: filename, Reader: file}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isCannotDM(err) {
			return apperrors.NewDeliveryBlocked("You must enable direct messages from server members to receive your product.")
		}
		return err
	}
	return nil
}

func isCannotDM(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser
	}
	return false
}
