package accent

import (
	"errors"
	"runtime"
	"testing"
)

func TestParseAccentState(t *testing.T) {
	tests := []struct {
		in      string
		want    AccentState
		wantErr bool
	}{
		{"disabled", AccentDisabled, false},
		{"OFF", AccentDisabled, false},
		{"gradient", AccentEnableGradient, false},
		{"transparent-gradient", AccentEnableTransparentGradient, false},
		{"blur", AccentEnableBlurBehind, false},
		{" blur-behind ", AccentEnableBlurBehind, false},
		{"acrylic", AccentEnableAcrylicBlurBehind, false},
		{"4", AccentEnableAcrylicBlurBehind, false},
		{"0", AccentDisabled, false},
		{"5", 0, true},
		{"invalid", 0, true},
		{"frosted", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAccentState(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAccentState) {
					t.Fatalf("ParseAccentState(%q) error = %v, want ErrInvalidAccentState", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAccentState(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseAccentState(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAccentStateString(t *testing.T) {
	if got := AccentEnableAcrylicBlurBehind.String(); got != "acrylic" {
		t.Fatalf("String() = %q, want acrylic", got)
	}
	if got := AccentState(42).String(); got != "AccentState(42)" {
		t.Fatalf("String() = %q", got)
	}
	for _, s := range States() {
		parsed, err := ParseAccentState(s.String())
		if err != nil || parsed != s {
			t.Fatalf("ParseAccentState(%q) = %v, %v", s.String(), parsed, err)
		}
	}
}

func TestParseFlags(t *testing.T) {
	got, err := ParseFlags([]string{"draw-left-border", "Draw-Top-Border"})
	if err != nil {
		t.Fatalf("ParseFlags error: %v", err)
	}
	if got != FlagDrawLeftBorder|FlagDrawTopBorder {
		t.Fatalf("ParseFlags = %#x", got)
	}
	if got, _ := ParseFlags([]string{"draw-all-borders"}); got != 0x1E0 {
		t.Fatalf("draw-all-borders = %#x, want 0x1E0", got)
	}
	if _, err := ParseFlags([]string{"sparkle"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestColorHelpers(t *testing.T) {
	c := ABGR(0x01, 0xFF, 0xFF, 0xFF)
	if c != DefaultGradientColor {
		t.Fatalf("ABGR = %#x, want %#x", c, DefaultGradientColor)
	}
	a, b, g, r := Channels(0x80112233)
	if a != 0x80 || b != 0x11 || g != 0x22 || r != 0x33 {
		t.Fatalf("Channels = %x %x %x %x", a, b, g, r)
	}
	if got := ABGR(Channels(0x80112233)); got != 0x80112233 {
		t.Fatalf("ABGR(Channels(c)) = %#x", got)
	}
	if got := FormatColor(0x01FFFFFF); got != "0x01FFFFFF" {
		t.Fatalf("FormatColor = %q", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"0x01FFFFFF", 0x01FFFFFF, false},
		{"0XCC1E1E1E", 0xCC1E1E1E, false},
		{"#80112233", 0x80112233, false},
		{"#112233", 0xFF112233, false},
		{"33554431", 0x01FFFFFF, false},
		{"", 0, true},
		{"0x123", 0, true},
		{"#GG112233", 0, true},
		{"blue", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) = %#x, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestSystemNativeOnNonWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("entry point is expected to resolve on windows")
	}
	n, err := SystemNative()
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("SystemNative() error = %v, want ErrUnsupported", err)
	}
	if IsSupported(n) {
		t.Fatal("IsSupported() = true on non-windows host")
	}
	if NewController().Supported() {
		t.Fatal("NewController().Supported() = true on non-windows host")
	}
}
