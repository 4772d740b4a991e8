package bot

import "github.com/bwmarrin/discordgo"

// Slash command and option names. These are part of the deployed surface;
// renaming one orphans the old command until the next sync.
const (
	CommandRedeem     = "redeem"
	CommandCheckOrder = "checkorder"
	CommandDashboard  = "redeem-dashboard"

	OptionOrderID = "order_id"
	OptionUser    = "user"
)

// Commands returns the slash command definitions registered on startup.
func Commands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandRedeem,
			Description:              "Verify a store order and grant access to a member",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionOrderID,
					Description: "The order or invoice id from the store",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        OptionUser,
					Description: "The member who placed the order",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandCheckOrder,
			Description: "Look up an order's payment and redemption state",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionOrderID,
					Description: "The order or invoice id from the store",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandDashboard,
			Description: "Preview the product dashboard from the current button config",
		},
	}
}
