package teams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	cases := []struct {
		in   string
		want RGB
	}{
		{"#1a2b3c", RGB{0x1a, 0x2b, 0x3c}},
		{"1A2B3C", RGB{0x1a, 0x2b, 0x3c}},
		{" #ff0000 ", RGB{0xff, 0, 0}},
		{"#abc", RGB{0xaa, 0xbb, 0xcc}},
		{"fff", RGB{0xff, 0xff, 0xff}},
	}
	for _, tc := range cases {
		got, err := ParseHex(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "#", "#12", "#12345", "#1234567", "#gggggg", "red"} {
		_, err := ParseHex(bad)
		assert.Error(t, err, bad)
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := RGB{0x1a, 0x2b, 0x3c}
	assert.Equal(t, "#1a2b3c", c.Hex())

	normalized, err := NormalizeHex("FFF")
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", normalized)
}

func TestLuminanceBounds(t *testing.T) {
	assert.InDelta(t, 0.0, RGB{0, 0, 0}.Luminance(), 1e-9)
	assert.InDelta(t, 1.0, RGB{255, 255, 255}.Luminance(), 1e-9)
}

func TestContrastText(t *testing.T) {
	black := "#000000"
	white := "#ffffff"
	cases := []struct {
		bg   string
		want string
	}{
		{"#ffffff", black},
		{"#000000", white},
		{"#ffeb3b", black}, // bright yellow
		{"#1565c0", white}, // deep blue
		{"#808080", black}, // mid grey sits just above the threshold
	}
	for _, tc := range cases {
		c, err := ParseHex(tc.bg)
		require.NoError(t, err)
		assert.Equal(t, tc.want, c.ContrastText(), tc.bg)
	}
}
