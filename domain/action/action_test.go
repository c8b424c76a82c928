package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVK(t *testing.T) {
	cases := map[string]uint16{
		"F1":    0x70,
		"f9":    0x78,
		" F12 ": 0x7B,
		"w":     'W',
		"Z":     'Z',
		"7":     '7',
		"ctrl":  0x11,
		"Alt":   0x12,
		"shift": 0x10,
		"esc":   0x1B,
	}
	for in, want := range cases {
		got, err := ParseVK(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "f0", "f13", "fx", "ctl", "ww"} {
		_, err := ParseVK(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCombo(t *testing.T) {
	keys, err := ParseCombo("ctrl+w")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x11, 'W'}, keys)

	keys, err = ParseCombo("ctrl+shift+t")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x11, 0x10, 'T'}, keys)

	_, err = ParseCombo("ctrl+")
	assert.Error(t, err)
	_, err = ParseCombo("ctrl+nope")
	assert.Error(t, err)
}
