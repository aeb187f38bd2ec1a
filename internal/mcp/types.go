package mcp

// ApplyEffectInput is the input for the apply_effect tool.
type ApplyEffectInput struct {
	Window uint32   `json:"window,omitempty" jsonschema:"Target window id (decimal). Omit or 0 for the active window."`
	State  string   `json:"state" jsonschema:"Accent state: disabled, gradient, transparent-gradient, blur or acrylic (see list_accent_states)"`
	Color  string   `json:"color,omitempty" jsonschema:"Tint color as 0xAABBGGRR or #AABBGGRR (default: configured default_color)"`
	Flags  []string `json:"flags,omitempty" jsonschema:"Accent flags such as draw-left-border or draw-all-borders"`
}

// DisableEffectInput is the input for the disable_effect tool.
type DisableEffectInput struct {
	Window uint32 `json:"window,omitempty" jsonschema:"Target window id (decimal). Omit or 0 for the active window."`
}

// EffectOutput is the output for apply_effect and disable_effect.
type EffectOutput struct {
	Window uint32 `json:"window"`
	State  string `json:"state"`
	Color  string `json:"color,omitempty"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Class string `json:"class,omitempty" jsonschema:"Only return windows whose WM_CLASS matches (case-insensitive)"`
}

// WindowInfo describes a single top-level window.
type WindowInfo struct {
	ID     uint32 `json:"id"`
	Class  string `json:"class"`
	Title  string `json:"title"`
	Effect string `json:"effect,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// ListAccentStatesInput is the input for the list_accent_states tool.
type ListAccentStatesInput struct{}

// AccentStateInfo describes one accent state.
type AccentStateInfo struct {
	Name string `json:"name"`
	Code uint32 `json:"code"`
}

// ListAccentStatesOutput is the output for the list_accent_states tool.
type ListAccentStatesOutput struct {
	States []AccentStateInfo `json:"states"`
	Flags  []string          `json:"flags"`
}
