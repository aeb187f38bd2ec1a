package accent

import (
	"fmt"
	"strconv"
	"strings"
)

// ABGR packs channels into the gradient color layout the compositor
// expects: alpha in the most significant byte, then blue, green, red.
func ABGR(a, b, g, r uint8) uint32 {
	return uint32(a)<<24 | uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

// Channels splits an ABGR color.
func Channels(c uint32) (a, b, g, r uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// ParseColor reads an ABGR color written as 0xAABBGGRR, #AABBGGRR or a
// decimal integer. Six hex digits are treated as BBGGRR with full alpha.
func ParseColor(s string) (uint32, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, fmt.Errorf("color is empty")
	}

	var hex string
	switch {
	case strings.HasPrefix(v, "0x"), strings.HasPrefix(v, "0X"):
		hex = v[2:]
	case strings.HasPrefix(v, "#"):
		hex = v[1:]
	default:
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return uint32(n), nil
	}

	switch len(hex) {
	case 6, 8:
	default:
		return 0, fmt.Errorf("invalid color %q: want 6 or 8 hex digits", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	if len(hex) == 6 {
		n |= 0xFF000000
	}
	return uint32(n), nil
}

// FormatColor renders c as 0xAABBGGRR.
func FormatColor(c uint32) string {
	return fmt.Sprintf("0x%08X", c)
}
