package platform

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/shopbot/pkg/util/errorutil"
)

// RoleSession is the slice of the gateway session the granter needs.
type RoleSession interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Granter applies membership roles idempotently.
type Granter struct {
	session RoleSession
	guildID string
	logger  *zap.Logger
}

// NewGranter constructs a granter bound to one guild.
func NewGranter(session RoleSession, guildID string, logger *zap.Logger) *Granter {
	return &Granter{session: session, guildID: guildID, logger: logger}
}

// Member fetches a guild member. Callers use it for role checks and for the
// guild-membership safety check before staff-issued grants.
func (g *Granter) Member(ctx context.Context, userID string) (*discordgo.Member, error) {
	member, err := g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return member, nil
}

// EnsureRole grants the role unless the member already holds it. A platform
// permission rejection is surfaced with remediation text rather than a
// generic failure.
func (g *Granter) EnsureRole(ctx context.Context, userID, roleID string) error {
	member, err := g.Member(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range member.Roles {
		if id == roleID {
			return nil
		}
	}

	if err := g.session.GuildMemberRoleAdd(g.guildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		if isMissingPermissions(err) {
			return apperrors.NewPermissionDenied(
				"I can't assign roles. Make sure my role is above the access role and that I have Manage Roles.")
		}
		return err
	}
	g.logger.Info("role granted", zap.String("user_id", userID), zap.String("role_id", roleID))
	return nil
}

// HasRole reports whether the member holds the given role.
func HasRole(member *discordgo.Member, roleID string) bool {
	if member == nil {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// DisplayName returns the best human-readable name for a member.
func DisplayName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return "unknown"
	}
	return member.User.Username
}

func isMissingPermissions(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeMissingPermissions
	}
	return false
}
