package panel

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCustomID(t *testing.T) {
	roleID, ok := ParseProductCustomID(ProductCustomID("555"))
	assert.True(t, ok)
	assert.Equal(t, "555", roleID)

	_, ok = ParseProductCustomID("shop:ticket")
	assert.False(t, ok)
}

func TestDashboardMessage(t *testing.T) {
	t.Run("styles follow the color map with a default fallback", func(t *testing.T) {
		msg := DashboardMessage([]Button{
			{Name: "A", Color: ColorGreen, RedeemRole: "1"},
			{Name: "B", Color: ButtonColor("magenta"), RedeemRole: "2"},
		})
		require.Len(t, msg.Components, 1)
		row := msg.Components[0].(discordgo.ActionsRow)
		require.Len(t, row.Components, 2)
		assert.Equal(t, discordgo.SuccessButton, row.Components[0].(discordgo.Button).Style)
		assert.Equal(t, discordgo.SecondaryButton, row.Components[1].(discordgo.Button).Style)
	})

	t.Run("buttons chunk into rows of five", func(t *testing.T) {
		buttons := make([]Button, 7)
		for i := range buttons {
			buttons[i] = Button{Name: "P", Color: ColorGrey, RedeemRole: "r"}
		}
		msg := DashboardMessage(buttons)
		require.Len(t, msg.Components, 2)
		assert.Len(t, msg.Components[0].(discordgo.ActionsRow).Components, 5)
		assert.Len(t, msg.Components[1].(discordgo.ActionsRow).Components, 2)
	})

	t.Run("no buttons yields no component rows", func(t *testing.T) {
		msg := DashboardMessage(nil)
		assert.Empty(t, msg.Components)
	})
}
