package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/glasspane/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandApplyEffect   CommandType = "APPLY_EFFECT"
	CommandDisableEffect CommandType = "DISABLE_EFFECT"
	CommandListWindows   CommandType = "LIST_WINDOWS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool            `json:"daemon_running"`
	Backend       string          `json:"backend"`
	Supported     bool            `json:"supported"`
	RuleCount     int             `json:"rule_count"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Applied       []AppliedEffect `json:"applied"`
}

// AppliedEffect describes an effect the daemon currently holds on a window.
type AppliedEffect struct {
	Window uint32 `json:"window"`
	State  string `json:"state"`
	Color  string `json:"color"`
	Rule   string `json:"rule,omitempty"`
}

// ApplyEffectPayload is the payload for APPLY_EFFECT. Window 0 targets the
// active window. An empty color uses the configured default_color.
type ApplyEffectPayload struct {
	Window uint32   `json:"window"`
	State  string   `json:"state"`
	Color  string   `json:"color,omitempty"`
	Flags  []string `json:"flags,omitempty"`
}

// DisableEffectPayload is the payload for DISABLE_EFFECT. Window 0 targets
// the active window.
type DisableEffectPayload struct {
	Window uint32 `json:"window"`
}

// EffectResult is returned by APPLY_EFFECT and DISABLE_EFFECT.
type EffectResult struct {
	Window uint32 `json:"window"`
	State  string `json:"state"`
	Color  string `json:"color,omitempty"`
}

// WindowInfo represents a single top-level window.
type WindowInfo struct {
	ID      uint32 `json:"id"`
	PID     int    `json:"pid,omitempty"`
	Class   string `json:"class"`
	Title   string `json:"title"`
	Desktop int    `json:"desktop"`
	Effect  string `json:"effect,omitempty"`
}

// EffectExternalHint marks a window whose blur-behind hint was not set by
// this daemon.
const EffectExternalHint = "blur-hint"

// NewWindowInfo converts a backend window. Effect is only filled in for an
// existing blur-behind hint.
func NewWindowInfo(w platform.Window) WindowInfo {
	info := WindowInfo{
		ID:      uint32(w.ID),
		PID:     w.PID,
		Class:   w.Class,
		Title:   w.Title,
		Desktop: w.Desktop,
	}
	if w.BlurBehind {
		info.Effect = EffectExternalHint
	}
	return info
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []WindowInfo `json:"windows"`
	Active  uint32       `json:"active,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
