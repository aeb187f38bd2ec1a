package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/glasspane/internal/accent"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if got := cfg.DefaultColorValue(); got != accent.DefaultGradientColor {
		t.Fatalf("DefaultColorValue = %#x, want %#x", got, accent.DefaultGradientColor)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != DefaultBackend {
		t.Fatalf("backend = %q, want %q", res.Config.Backend, DefaultBackend)
	}
	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t, "# empty\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ReconcileInterval != DefaultReconcileInterval {
		t.Fatalf("reconcile_interval = %d, want %d", res.Config.ReconcileInterval, DefaultReconcileInterval)
	}
}

func TestLoadFromPath_Rules(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"backend: x11",
		"default_color: \"0x40FFFFFF\"",
		"tint_opacity: true",
		"rules:",
		"  - class: Alacritty",
		"    effect: acrylic",
		"    color: \"0xCC1E1E1E\"",
		"    flags: [draw-left-border]",
		"  - class: kitty",
		"    title: scratch",
		"    effect: blur",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != "x11" || !cfg.TintOpacity {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(cfg.Rules))
	}

	p, err := cfg.Rules[0].Policy(cfg.DefaultColorValue())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	want := accent.AccentPolicy{
		AccentState:   accent.AccentEnableAcrylicBlurBehind,
		AccentFlags:   accent.FlagDrawLeftBorder,
		GradientColor: 0xCC1E1E1E,
	}
	if p != want {
		t.Fatalf("policy = %+v, want %+v", p, want)
	}

	p, err = cfg.Rules[1].Policy(cfg.DefaultColorValue())
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if p.GradientColor != 0x40FFFFFF || p.AccentState != accent.AccentEnableBlurBehind {
		t.Fatalf("policy = %+v, want blur with default color", p)
	}

	if src, ok := res.Sources["rules[0].effect"]; !ok || src.Line != 6 {
		t.Fatalf("source for rules[0].effect = %+v, want line 6", src)
	}
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, "blurriness: 11\n"))
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadFromPath_ValidationErrorCarriesSource(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"rules:",
		"  - class: Alacritty",
		"    effect: frosted",
		"",
	}, "\n"))

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Path != "rules[0].effect" {
		t.Fatalf("path = %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("line = %d, want 3", verr.Source.Line)
	}
	if !errors.Is(err, accent.ErrInvalidAccentState) {
		t.Fatalf("error does not wrap ErrInvalidAccentState: %v", err)
	}
	if !strings.Contains(err.Error(), ":3:") {
		t.Fatalf("error message lacks position: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Backend = "metal" }, "backend"},
		{"default color", func(c *Config) { c.DefaultColor = "teal" }, "default_color"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"interval", func(c *Config) { c.ReconcileInterval = -1 }, "reconcile_interval"},
		{"rule class", func(c *Config) { c.Rules = []Rule{{Effect: "blur"}} }, "rules[0].class"},
		{"rule color", func(c *Config) { c.Rules = []Rule{{Class: "x", Effect: "blur", Color: "0x1"}} }, "rules[0].color"},
		{"rule flags", func(c *Config) { c.Rules = []Rule{{Class: "x", Effect: "blur", Flags: []string{"glow"}}} }, "rules[0].flags"},
		{"rule invalid state", func(c *Config) { c.Rules = []Rule{{Class: "x", Effect: "5"}} }, "rules[0].effect"},
		{"toggle effect", func(c *Config) { c.ToggleEffect = "frosted" }, "toggle_effect"},
		{"logging level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"logging files", func(c *Config) { c.Logging.MaxFiles = -2 }, "logging.max_files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestValidate_AcceptsEveryLogLevelName(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "WARN"} {
		cfg := DefaultConfig()
		cfg.LogLevel = level
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("level %q rejected: %v", level, err)
		}
	}

	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	if got := cfg.SlogLevel(); got != slog.LevelWarn {
		t.Fatalf("SlogLevel() = %v, want warn", got)
	}
}

func TestRuleMatches(t *testing.T) {
	r := Rule{Class: "Alacritty", Effect: "blur"}
	if !r.Matches("alacritty", "anything") {
		t.Fatal("class match should be case-insensitive")
	}
	if r.Matches("kitty", "") {
		t.Fatal("unexpected match for other class")
	}

	r.Title = "Scratch"
	if !r.Matches("Alacritty", "my scratchpad") {
		t.Fatal("title substring should match")
	}
	if r.Matches("Alacritty", "editor") {
		t.Fatal("title mismatch should not match")
	}
}

func TestRulePolicy_DisabledIgnoresColor(t *testing.T) {
	p, err := Rule{Class: "x", Effect: "disabled", Color: "0xFF00FF00"}.Policy(0x01FFFFFF)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	if p != accent.DisabledPolicy() {
		t.Fatalf("policy = %+v, want disabled", p)
	}
}

func TestTogglePolicy(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.TogglePolicy()
	if err != nil {
		t.Fatalf("TogglePolicy: %v", err)
	}
	if p != accent.BlurPolicy(accent.DefaultGradientColor) {
		t.Fatalf("default toggle policy = %+v", p)
	}

	cfg.ToggleEffect = "blur"
	cfg.DefaultColor = "0x80000000"
	p, err = cfg.TogglePolicy()
	if err != nil {
		t.Fatalf("TogglePolicy: %v", err)
	}
	if p.AccentState != accent.AccentEnableBlurBehind || p.GradientColor != 0x80000000 {
		t.Fatalf("toggle policy = %+v", p)
	}
}

func TestGetLoggingConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg := DefaultConfig()
	lc := cfg.GetLoggingConfig()
	if lc.MaxSizeMB != DefaultLogMaxSizeMB || lc.MaxFiles != DefaultLogMaxFiles || lc.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", lc)
	}
	if lc.File != "/home/tester/.local/share/glasspane/effects.log" {
		t.Fatalf("file = %q", lc.File)
	}

	cfg.Logging.File = "~/logs/fx.log"
	if got := cfg.GetLoggingConfig().File; got != "/home/tester/logs/fx.log" {
		t.Fatalf("expanded file = %q", got)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Backend = "none"
	cfg.Rules = []Rule{{Class: "kitty", Effect: "acrylic", Color: "0x80000000"}}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != "none" || len(res.Config.Rules) != 1 || res.Config.Rules[0].Class != "kitty" {
		t.Fatalf("round trip mismatch: %+v", res.Config)
	}
}

func TestSaveTo_RejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "metal"
	if err := cfg.SaveTo(filepath.Join(t.TempDir(), "c.yaml")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"backend: none",
		"rules:",
		"  - class: kitty",
		"    effect: blur",
		"",
	}, "\n"))
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	value, src, err := Explain(res, "backend")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "none" || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("backend = %v from %+v", value, src)
	}

	value, src, err = Explain(res, "rules[0].class")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "kitty" || src.Line != 3 {
		t.Fatalf("rules[0].class = %v from %+v", value, src)
	}

	value, src, err = Explain(res, "log_level")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "info" || src.Kind != SourceDefault {
		t.Fatalf("log_level = %v from %+v", value, src)
	}

	if _, _, err := Explain(res, "rules[3].class"); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
	if _, _, err := Explain(res, "nope"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}
