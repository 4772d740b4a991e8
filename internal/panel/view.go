package panel

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Component ids are stable across restarts so controls on old messages keep
// working.
const (
	RedeemOrderButtonID = "shop:redeem"
	OpenTicketButtonID  = "shop:ticket"
	RedeemModalID       = "shop:redeem-modal"
	OrderIDInputID      = "order_id"

	productButtonPrefix = "panel:redeem:"
)

// ProductCustomID encodes a product button id. Only the role id is embedded;
// the product path is resolved from a fresh config load at click time, so
// config edits apply to already-posted panels.
func ProductCustomID(roleID string) string {
	return productButtonPrefix + roleID
}

// ParseProductCustomID extracts the role id from a product button id.
func ParseProductCustomID(customID string) (roleID string, ok bool) {
	if !strings.HasPrefix(customID, productButtonPrefix) {
		return "", false
	}
	return strings.TrimPrefix(customID, productButtonPrefix), true
}

// FindByRole returns the button bound to the given role.
func FindByRole(buttons []Button, roleID string) (Button, bool) {
	for _, b := range buttons {
		if b.RedeemRole == roleID {
			return b, true
		}
	}
	return Button{}, false
}

var styleByColor = map[ButtonColor]discordgo.ButtonStyle{
	ColorGrey:    discordgo.SecondaryButton,
	ColorGray:    discordgo.SecondaryButton,
	ColorGreen:   discordgo.SuccessButton,
	ColorRed:     discordgo.DangerButton,
	ColorBlurple: discordgo.PrimaryButton,
}

// ShopMessage builds the purchase/redeem panel posted to the shop channel.
func ShopMessage(shopURL string) *discordgo.MessageSend {
	description := "**How it works:**\n" +
		"1. Purchase in the shop\n" +
		"2. Redeem your order id\n" +
		"3. Receive the access role\n" +
		"4. Open a ticket to get set up"
	if shopURL != "" {
		description = shopURL + "\n\n" + description
	}

	buttons := []discordgo.MessageComponent{}
	if shopURL != "" {
		buttons = append(buttons, discordgo.Button{
			Label: "Purchase",
			Style: discordgo.LinkButton,
			URL:   shopURL,
		})
	}
	buttons = append(buttons,
		discordgo.Button{
			Label:    "Redeem Order ID",
			Style:    discordgo.PrimaryButton,
			CustomID: RedeemOrderButtonID,
		},
		discordgo.Button{
			Label:    "Open Ticket",
			Style:    discordgo.SecondaryButton,
			CustomID: OpenTicketButtonID,
		},
	)

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Shop",
			Description: description,
			Color:       0x489BF3,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	}
}

// DashboardMessage builds the product redeem dashboard from the current
// button config. Buttons are chunked into rows of five, the platform's
// per-row limit.
func DashboardMessage(buttons []Button) *discordgo.MessageSend {
	rows := []discordgo.MessageComponent{}
	var current []discordgo.MessageComponent
	for _, b := range buttons {
		style, ok := styleByColor[b.Color]
		if !ok {
			style = discordgo.SecondaryButton
		}
		current = append(current, discordgo.Button{
			Label:    b.Name,
			Style:    style,
			CustomID: ProductCustomID(b.RedeemRole),
		})
		if len(current) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: current})
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: current})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Product Redeem Dashboard",
			Description: "Click a button below to redeem your purchased product.",
			Color:       0x5865F2,
		}},
		Components: rows,
	}
}
