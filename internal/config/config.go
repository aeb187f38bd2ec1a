package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/glasspane/internal/accent"
)

const (
	DefaultBackend           = "auto"
	DefaultReconcileInterval = 10 // seconds
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxFiles       = 3
)

// Rule applies an effect to every window whose WM_CLASS matches.
type Rule struct {
	Class  string   `yaml:"class"`
	Title  string   `yaml:"title,omitempty"` // optional case-insensitive substring
	Effect string   `yaml:"effect"`
	Color  string   `yaml:"color,omitempty"` // ABGR; empty = default_color
	Flags  []string `yaml:"flags,omitempty"`
}

// LoggingConfig configures the effect action log.
type LoggingConfig struct {
	// Enabled turns effect action logging on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/glasspane/effects.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Backend           string        `yaml:"backend"`
	DefaultColor      string        `yaml:"default_color"`
	Display           string        `yaml:"display,omitempty"`
	TintOpacity       bool          `yaml:"tint_opacity"`
	LogLevel          string        `yaml:"log_level"`
	ReconcileInterval int           `yaml:"reconcile_interval"`
	ToggleHotkey      string        `yaml:"toggle_hotkey,omitempty"` // e.g. "Mod4-Shift-b"
	ToggleEffect      string        `yaml:"toggle_effect,omitempty"` // default: acrylic
	Rules             []Rule        `yaml:"rules,omitempty"`
	Logging           LoggingConfig `yaml:"logging,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:           DefaultBackend,
		DefaultColor:      accent.FormatColor(accent.DefaultGradientColor),
		LogLevel:          "info",
		ReconcileInterval: DefaultReconcileInterval,
		Rules:             []Rule{},
	}
}

// DefaultColorValue parses default_color, falling back to the built-in tint.
func (c *Config) DefaultColorValue() uint32 {
	if c == nil {
		return accent.DefaultGradientColor
	}
	v, err := accent.ParseColor(c.DefaultColor)
	if err != nil {
		return accent.DefaultGradientColor
	}
	return v
}

// Policy builds the accent policy for a rule. An empty color uses
// defaultColor.
func (r Rule) Policy(defaultColor uint32) (accent.AccentPolicy, error) {
	state, err := accent.ParseAccentState(r.Effect)
	if err != nil {
		return accent.AccentPolicy{}, err
	}
	color := defaultColor
	if strings.TrimSpace(r.Color) != "" {
		color, err = accent.ParseColor(r.Color)
		if err != nil {
			return accent.AccentPolicy{}, err
		}
	}
	flags, err := accent.ParseFlags(r.Flags)
	if err != nil {
		return accent.AccentPolicy{}, err
	}
	if state == accent.AccentDisabled {
		return accent.DisabledPolicy(), nil
	}
	return accent.AccentPolicy{
		AccentState:   state,
		AccentFlags:   flags,
		GradientColor: color,
	}, nil
}

// TogglePolicy is the policy the toggle hotkey applies.
func (c *Config) TogglePolicy() (accent.AccentPolicy, error) {
	effect := c.ToggleEffect
	if strings.TrimSpace(effect) == "" {
		effect = accent.AccentEnableAcrylicBlurBehind.String()
	}
	return Rule{Effect: effect}.Policy(c.DefaultColorValue())
}

// Matches reports whether the rule selects a window with the given class
// and title.
func (r Rule) Matches(class, title string) bool {
	if !strings.EqualFold(strings.TrimSpace(r.Class), strings.TrimSpace(class)) {
		return false
	}
	if r.Title == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(r.Title))
}

// SlogLevel maps log_level onto slog levels.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLoggingConfig returns logging settings with defaults applied and the
// file path expanded.
func (c *Config) GetLoggingConfig() LoggingConfig {
	out := c.Logging
	if out.Level == "" {
		out.Level = "info"
	}
	if out.MaxSizeMB <= 0 {
		out.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if out.MaxFiles <= 0 {
		out.MaxFiles = DefaultLogMaxFiles
	}
	if out.File == "" {
		if home, err := os.UserHomeDir(); err == nil {
			out.File = filepath.Join(home, ".local", "share", "glasspane", "effects.log")
		}
	} else if strings.HasPrefix(out.File, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			out.File = filepath.Join(home, out.File[2:])
		}
	}
	return out
}

// Validate checks every field and reports the first problem with its path.
func (c *Config) Validate() error {
	switch c.Backend {
	case "auto", "win32", "x11", "none":
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, win32, x11, none")}
	}
	if _, err := accent.ParseColor(c.DefaultColor); err != nil {
		return &ValidationError{Path: "default_color", Err: err}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, warning, error")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	if strings.TrimSpace(c.ToggleEffect) != "" {
		if _, err := accent.ParseAccentState(c.ToggleEffect); err != nil {
			return &ValidationError{Path: "toggle_effect", Err: err}
		}
	}
	for i, rule := range c.Rules {
		prefix := fmt.Sprintf("rules[%d]", i)
		if strings.TrimSpace(rule.Class) == "" {
			return &ValidationError{Path: prefix + ".class", Err: fmt.Errorf("class is required")}
		}
		if _, err := accent.ParseAccentState(rule.Effect); err != nil {
			return &ValidationError{Path: prefix + ".effect", Err: err}
		}
		if strings.TrimSpace(rule.Color) != "" {
			if _, err := accent.ParseColor(rule.Color); err != nil {
				return &ValidationError{Path: prefix + ".color", Err: err}
			}
		}
		if _, err := accent.ParseFlags(rule.Flags); err != nil {
			return &ValidationError{Path: prefix + ".flags", Err: err}
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}

// Save writes the config to the default location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates and writes the config to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
