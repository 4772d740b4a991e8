package platform

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/shopbot/internal/config"
)

// Connect opens a gateway session, sets presence on ready, and returns the
// live session. The caller owns Close.
func Connect(cfg config.DiscordConfig, logger *zap.Logger) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		if err := s.UpdateGameStatus(0, cfg.Presence); err != nil {
			logger.Warn("failed to set presence", zap.Error(err))
		}
		logger.Info("gateway ready",
			zap.String("user", r.User.Username),
			zap.String("user_id", r.User.ID))
	})

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open gateway: %w", err)
	}
	return session, nil
}

// SyncCommands bulk-overwrites the guild's slash commands so changes take
// effect immediately instead of waiting for global propagation.
func SyncCommands(session *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand, logger *zap.Logger) error {
	appID := session.State.User.ID
	synced, err := session.ApplicationCommandBulkOverwrite(appID, guildID, commands)
	if err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}
	logger.Info("slash commands synced", zap.Int("count", len(synced)), zap.String("guild_id", guildID))
	return nil
}
