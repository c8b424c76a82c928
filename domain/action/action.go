// Package action holds the OS input primitives: pointer movement, left
// button press/release, key combinations and key-state polling.
package action

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by input primitives on platforms without an
// injection backend.
var ErrUnsupported = errors.New("input injection not supported on this platform")

// Actuator is the single pointer/keyboard interface the motion engine drives.
type Actuator interface {
	MoveTo(x, y int) error
	Position() (x, y int, err error)
	Press() error
	Release() error
	// SendKeys presses every key of combo in order and releases them in
	// reverse, e.g. "ctrl+w".
	SendKeys(combo string) error
}

// Virtual-key codes used by ParseVK. Values match the Win32 VK_* constants.
const (
	vkBack    uint16 = 0x08
	vkTab     uint16 = 0x09
	vkReturn  uint16 = 0x0D
	vkShift   uint16 = 0x10
	vkControl uint16 = 0x11
	vkMenu    uint16 = 0x12
	vkPause   uint16 = 0x13
	vkEscape  uint16 = 0x1B
	vkSpace   uint16 = 0x20
	vkEnd     uint16 = 0x23
	vkHome    uint16 = 0x24
	vkDelete  uint16 = 0x2E
	vkF1      uint16 = 0x70
	vkLWin    uint16 = 0x5B
)

var namedKeys = map[string]uint16{
	"backspace": vkBack,
	"tab":       vkTab,
	"enter":     vkReturn,
	"return":    vkReturn,
	"shift":     vkShift,
	"ctrl":      vkControl,
	"control":   vkControl,
	"alt":       vkMenu,
	"pause":     vkPause,
	"esc":       vkEscape,
	"escape":    vkEscape,
	"space":     vkSpace,
	"end":       vkEnd,
	"home":      vkHome,
	"delete":    vkDelete,
	"del":       vkDelete,
	"win":       vkLWin,
}

// ParseVK converts a key token ("f9", "w", "ctrl", "7") into a virtual-key
// code. Tokens are case-insensitive.
func ParseVK(token string) (uint16, error) {
	k := strings.ToLower(strings.TrimSpace(token))
	if vk, ok := namedKeys[k]; ok {
		return vk, nil
	}
	if len(k) >= 2 && len(k) <= 3 && k[0] == 'f' {
		n := 0
		for _, c := range k[1:] {
			if c < '0' || c > '9' {
				n = -1
				break
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 12 {
			return vkF1 + uint16(n-1), nil
		}
	}
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), nil
		case c >= '0' && c <= '9':
			return uint16(c), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", token)
}

// ParseCombo splits a "+"-joined combination into virtual-key codes in press
// order.
func ParseCombo(combo string) ([]uint16, error) {
	parts := strings.Split(combo, "+")
	keys := make([]uint16, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("empty key in combination %q", combo)
		}
		vk, err := ParseVK(p)
		if err != nil {
			return nil, err
		}
		keys = append(keys, vk)
	}
	return keys, nil
}
