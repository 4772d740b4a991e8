package panel

import (
	"encoding/json"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ButtonColor is the set of styles the config file may name.
type ButtonColor string

const (
	ColorGrey    ButtonColor = "grey"
	ColorGray    ButtonColor = "gray"
	ColorGreen   ButtonColor = "green"
	ColorRed     ButtonColor = "red"
	ColorBlurple ButtonColor = "blurple"
)

// Button is one validated redeem button. Each button carries its own required
// role and the path of the product file it delivers.
type Button struct {
	Name        string
	Color       ButtonColor
	ProductPath string
	RedeemRole  string
}

type rawButton struct {
	ButtonName        string `json:"ButtonName"`
	ButtonColor       string `json:"ButtonColor"`
	ButtonProductPath string `json:"ButtonProductPath"`
	RedeemRole        string `json:"RedeemRole"`
}

type configFile struct {
	Buttons []rawButton `json:"buttons"`
}

var validColors = map[ButtonColor]bool{
	ColorGrey:    true,
	ColorGray:    true,
	ColorGreen:   true,
	ColorRed:     true,
	ColorBlurple: true,
}

// Load reads the button config file. It is called fresh on every panel render
// so edits take effect on the next refresh without a restart. Malformed
// entries are skipped with a logged warning; they are never fatal.
func Load(path string, logger *zap.Logger) ([]Button, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	buttons := make([]Button, 0, len(file.Buttons))
	for _, entry := range file.Buttons {
		if entry.ButtonName == "" || entry.ButtonColor == "" || entry.ButtonProductPath == "" || entry.RedeemRole == "" {
			logger.Warn("skipping button config entry with missing fields",
				zap.String("name", entry.ButtonName))
			continue
		}
		color := ButtonColor(strings.ToLower(entry.ButtonColor))
		if !validColors[color] {
			// An unrecognized color is cosmetic; the button still renders,
			// in the default style.
			logger.Warn("unknown button color; rendering with the default style",
				zap.String("name", entry.ButtonName),
				zap.String("color", entry.ButtonColor))
		}
		buttons = append(buttons, Button{
			Name:        entry.ButtonName,
			Color:       color,
			ProductPath: entry.ButtonProductPath,
			RedeemRole:  entry.RedeemRole,
		})
	}
	return buttons, nil
}
