// Package effectlog keeps an optional on-disk record of every effect the
// daemon applies, reverts or fails to apply.
package effectlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/1broseidon/glasspane/internal/accent"
)

// ActionType names what happened to a window.
type ActionType string

const (
	ActionApply   ActionType = "APPLY"
	ActionDisable ActionType = "DISABLE"
	ActionRule    ActionType = "RULE"
	ActionFailed  ActionType = "FAILED"
)

func (a ActionType) level() slog.Level {
	switch a {
	case ActionRule:
		return slog.LevelDebug
	case ActionFailed:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Entry is one effect action. Zero fields are left out of the record.
type Entry struct {
	Action ActionType
	Window uint32
	Policy *accent.AccentPolicy
	Rule   string // rule class that selected the window
	Class  string // WM_CLASS of the window
	Err    error
}

func (e Entry) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 7)
	if e.Window != 0 {
		attrs = append(attrs, slog.String("window", fmt.Sprintf("0x%x", e.Window)))
	}
	if p := e.Policy; p != nil {
		attrs = append(attrs, slog.String("state", p.AccentState.String()))
		if p.AccentState != accent.AccentDisabled {
			attrs = append(attrs, slog.String("color", accent.FormatColor(p.GradientColor)))
			if p.AccentFlags != 0 {
				attrs = append(attrs, slog.String("flags", fmt.Sprintf("0x%x", p.AccentFlags)))
			}
		}
	}
	if e.Class != "" {
		attrs = append(attrs, slog.String("class", e.Class))
	}
	if e.Rule != "" {
		attrs = append(attrs, slog.String("rule", e.Rule))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	return attrs
}

// LogConfig configures the effect log.
type LogConfig struct {
	Enabled   bool
	Level     slog.Level
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Logger writes Entries as slog text records to a size-rotated file.
// A nil or disabled Logger discards everything.
type Logger struct {
	out    *rotatingFile
	logger *slog.Logger
}

// NewLogger opens cfg.FilePath for appending. A disabled config yields a
// Logger that discards entries.
func NewLogger(cfg LogConfig) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{}, nil
	}

	out, err := openRotating(cfg.FilePath, int64(cfg.MaxSizeMB)*1024*1024, cfg.MaxFiles)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	return &Logger{out: out, logger: slog.New(handler)}, nil
}

// Log records e if its action passes the configured level.
func (l *Logger) Log(e Entry) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.LogAttrs(context.Background(), e.Action.level(), string(e.Action), e.attrs()...)
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	return l.out.Close()
}

// ParseLogLevel maps a config level name to a slog level. Unknown names
// mean info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
