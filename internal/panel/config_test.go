package panel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buttonconfig.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid entries", func(t *testing.T) {
		path := writeConfig(t, `{"buttons":[
			{"ButtonName":"Premium","ButtonColor":"Green","ButtonProductPath":"files/premium.zip","RedeemRole":"111"},
			{"ButtonName":"Weekly","ButtonColor":"blurple","ButtonProductPath":"files/weekly.zip","RedeemRole":"222"}
		]}`)
		buttons, err := Load(path, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, buttons, 2)
		assert.Equal(t, "Premium", buttons[0].Name)
		assert.Equal(t, ColorGreen, buttons[0].Color)
		assert.Equal(t, "222", buttons[1].RedeemRole)
	})

	t.Run("malformed entries skipped, valid remainder kept", func(t *testing.T) {
		path := writeConfig(t, `{"buttons":[
			{"ButtonName":"NoRole","ButtonColor":"red","ButtonProductPath":"files/a.zip"},
			{"ButtonName":"Good","ButtonColor":"grey","ButtonProductPath":"files/c.zip","RedeemRole":"444"}
		]}`)
		buttons, err := Load(path, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, buttons, 1)
		assert.Equal(t, "Good", buttons[0].Name)
	})

	t.Run("unknown color keeps the button", func(t *testing.T) {
		path := writeConfig(t, `{"buttons":[
			{"ButtonName":"BadColor","ButtonColor":"magenta","ButtonProductPath":"files/b.zip","RedeemRole":"333"}
		]}`)
		buttons, err := Load(path, zap.NewNop())
		require.NoError(t, err)
		require.Len(t, buttons, 1)
		assert.Equal(t, "BadColor", buttons[0].Name)
		assert.Equal(t, ButtonColor("magenta"), buttons[0].Color)
	})

	t.Run("empty buttons array", func(t *testing.T) {
		path := writeConfig(t, `{"buttons":[]}`)
		buttons, err := Load(path, zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, buttons)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeConfig(t, `{buttons:`)
		_, err := Load(path, zap.NewNop())
		assert.Error(t, err)
	})
}
