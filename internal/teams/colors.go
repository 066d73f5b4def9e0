package teams

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a decoded team color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// ParseHex decodes "#rrggbb" or shorthand "#rgb" (case-insensitive,
// leading # optional).
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("teams: invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("teams: invalid hex color %q", s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Hex renders the canonical "#rrggbb" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Luminance returns the WCAG relative luminance in [0, 1].
func (c RGB) Luminance() float64 {
	lin := func(v uint8) float64 {
		f := float64(v) / 255
		if f <= 0.03928 {
			return f / 12.92
		}
		return math.Pow((f+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastText picks black or white text for a background color.
func (c RGB) ContrastText() string {
	if c.Luminance() > 0.179 {
		return "#000000"
	}
	return "#ffffff"
}

// NormalizeHex validates a color and returns the canonical "#rrggbb" form.
func NormalizeHex(s string) (string, error) {
	c, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}
