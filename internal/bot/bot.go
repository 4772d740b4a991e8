package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/platform"
)

// Bot owns the interaction surface of a live gateway session.
type Bot struct {
	session    *discordgo.Session
	handler    *Handler
	guildID    string
	logger     *zap.Logger
	removeFunc func()
}

// New wires the handler onto the session.
func New(session *discordgo.Session, dispatcher *Dispatcher, guildID string, logger *zap.Logger) *Bot {
	handler := NewHandler(dispatcher, logger)
	return &Bot{
		session: session,
		handler: handler,
		guildID: guildID,
		logger:  logger,
	}
}

// Start registers the interaction handler and syncs the slash commands.
func (b *Bot) Start() error {
	b.removeFunc = b.session.AddHandler(b.handler.HandleInteraction)
	return platform.SyncCommands(b.session, b.guildID, Commands(), b.logger)
}

// Stop detaches the interaction handler. The session itself is closed by the
// caller that opened it.
func (b *Bot) Stop() {
	if b.removeFunc != nil {
		b.removeFunc()
		b.removeFunc = nil
	}
	b.logger.Info("interaction handler detached")
}
