// Package accent applies compositor accent effects (blur, acrylic,
// gradient tints) to native windows through the composition-attribute
// entry point.
//
// The structures in this package mirror the native declarations field for
// field. Their layout is part of an external binary contract and must not be
// reordered.
package accent

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unsafe"
)

// AccentState selects the compositor treatment for a window backdrop.
type AccentState uint32

const (
	AccentDisabled                  AccentState = 0
	AccentEnableGradient            AccentState = 1
	AccentEnableTransparentGradient AccentState = 2
	AccentEnableBlurBehind          AccentState = 3
	AccentEnableAcrylicBlurBehind   AccentState = 4
	AccentInvalidState              AccentState = 5
)

// WCAAccentPolicy is the window composition attribute that carries an
// AccentPolicy.
const WCAAccentPolicy uint32 = 19

// DefaultGradientColor is a nearly transparent white tint (ABGR).
const DefaultGradientColor uint32 = 0x01FFFFFF

// Accent flags understood by the compositor. They are passed through as-is.
const (
	FlagUseGradientColor uint32 = 0x2
	FlagDrawLeftBorder   uint32 = 0x20
	FlagDrawTopBorder    uint32 = 0x40
	FlagDrawRightBorder  uint32 = 0x80
	FlagDrawBottomBorder uint32 = 0x100
	FlagDrawAllBorders          = FlagDrawLeftBorder | FlagDrawTopBorder | FlagDrawRightBorder | FlagDrawBottomBorder
)

var stateNames = map[AccentState]string{
	AccentDisabled:                  "disabled",
	AccentEnableGradient:            "gradient",
	AccentEnableTransparentGradient: "transparent-gradient",
	AccentEnableBlurBehind:          "blur",
	AccentEnableAcrylicBlurBehind:   "acrylic",
	AccentInvalidState:              "invalid",
}

var flagNames = map[string]uint32{
	"use-gradient-color": FlagUseGradientColor,
	"draw-left-border":   FlagDrawLeftBorder,
	"draw-top-border":    FlagDrawTopBorder,
	"draw-right-border":  FlagDrawRightBorder,
	"draw-bottom-border": FlagDrawBottomBorder,
	"draw-all-borders":   FlagDrawAllBorders,
}

// Valid reports whether s may be dispatched. AccentInvalidState and unknown
// codes are rejected.
func (s AccentState) Valid() bool {
	return s < AccentInvalidState
}

func (s AccentState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AccentState(%d)", uint32(s))
}

// States returns every dispatchable state in code order.
func States() []AccentState {
	return []AccentState{
		AccentDisabled,
		AccentEnableGradient,
		AccentEnableTransparentGradient,
		AccentEnableBlurBehind,
		AccentEnableAcrylicBlurBehind,
	}
}

// ParseAccentState accepts a state name ("acrylic", "blur-behind", ...) or
// its numeric code. Only dispatchable states are returned.
func ParseAccentState(s string) (AccentState, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "disabled", "disable", "none", "off":
		return AccentDisabled, nil
	case "gradient":
		return AccentEnableGradient, nil
	case "transparent-gradient", "transparentgradient":
		return AccentEnableTransparentGradient, nil
	case "blur", "blur-behind", "blurbehind":
		return AccentEnableBlurBehind, nil
	case "acrylic", "acrylic-blur-behind", "acrylicblurbehind":
		return AccentEnableAcrylicBlurBehind, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccentState, s)
	}
	state := AccentState(n)
	if !state.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAccentState, n)
	}
	return state, nil
}

// FlagNames returns the accepted flag names, sorted.
func FlagNames() []string {
	names := make([]string, 0, len(flagNames))
	for name := range flagNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFlags combines named accent flags into a bitmask.
func ParseFlags(names []string) (uint32, error) {
	var flags uint32
	for _, name := range names {
		f, ok := flagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown accent flag %q", name)
		}
		flags |= f
	}
	return flags, nil
}

// AccentPolicy is the native ACCENT_POLICY block: four consecutive 32-bit
// fields, no padding. GradientColor is ABGR with alpha in the high byte.
type AccentPolicy struct {
	AccentState   AccentState
	AccentFlags   uint32
	GradientColor uint32
	AnimationID   uint32
}

// CompositionAttributeData is the WINDOWCOMPOSITIONATTRIBDATA envelope.
// Data is borrowed and must stay reachable for the duration of the call.
type CompositionAttributeData struct {
	Attribute  uint32
	Data       *AccentPolicy
	SizeOfData uintptr
}

const accentPolicySize = 16

// Fails to compile if AccentPolicy drifts from its native size.
var _ = [1]struct{}{}[unsafe.Sizeof(AccentPolicy{})-accentPolicySize]

// BlurPolicy is the policy dispatched by ApplyBlurEffect.
func BlurPolicy(gradientColor uint32) AccentPolicy {
	return AccentPolicy{
		AccentState:   AccentEnableAcrylicBlurBehind,
		GradientColor: gradientColor,
	}
}

// DisabledPolicy is the policy dispatched by DisableEffect.
func DisabledPolicy() AccentPolicy {
	return AccentPolicy{AccentState: AccentDisabled}
}

// NewCompositionAttributeData wraps policy in an accent-policy envelope.
func NewCompositionAttributeData(policy *AccentPolicy) CompositionAttributeData {
	return CompositionAttributeData{
		Attribute:  WCAAccentPolicy,
		Data:       policy,
		SizeOfData: unsafe.Sizeof(*policy),
	}
}
