package platform

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ChannelSession is the slice of the gateway session channel management needs.
type ChannelSession interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// ChannelManager creates and deletes ticket channels.
type ChannelManager struct {
	session   ChannelSession
	guildID   string
	botUserID string
	logger    *zap.Logger
}

// NewChannelManager constructs a manager bound to one guild.
func NewChannelManager(session ChannelSession, guildID, botUserID string, logger *zap.Logger) *ChannelManager {
	return &ChannelManager{session: session, guildID: guildID, botUserID: botUserID, logger: logger}
}

// TicketChannelSpec describes a private ticket channel to create.
type TicketChannelSpec struct {
	Name         string
	CategoryID   string
	Topic        string
	OpenerID     string
	StaffRoleIDs []string
}

const (
	openerPerms = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks
	staffPerms = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory
	botPerms = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionManageChannels |
		discordgo.PermissionManageMessages
)

// CreateTicketChannel creates a text channel visible only to the opener, the
// staff roles, and the bot.
func (c *ChannelManager) CreateTicketChannel(ctx context.Context, spec TicketChannelSpec) (string, error) {
	// The @everyone role shares the guild's id.
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   c.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    spec.OpenerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: openerPerms,
		},
		{
			ID:    c.botUserID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: botPerms,
		},
	}
	for _, roleID := range spec.StaffRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: staffPerms,
		})
	}

	channel, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	c.logger.Info("ticket channel created",
		zap.String("channel_id", channel.ID),
		zap.String("opener_id", spec.OpenerID))
	return channel.ID, nil
}

// ChannelExists reports whether the channel is still present. Channels can
// be deleted out from under the bot, so stored channel ids are hints, not
// truth.
func (c *ChannelManager) ChannelExists(ctx context.Context, channelID string) bool {
	_, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	return err == nil
}

// DeleteChannel removes a channel.
func (c *ChannelManager) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}
