package platform

import (
	"errors"
	"testing"

	"github.com/1broseidon/glasspane/internal/accent"
)

type fakeSurface struct {
	blur      map[uint32]bool
	opacity   map[uint32]float64
	failBlur  error
	cleared   int
	opCleared int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{blur: map[uint32]bool{}, opacity: map[uint32]float64{}}
}

func (f *fakeSurface) SetBlurBehind(id uint32) error {
	if f.failBlur != nil {
		return f.failBlur
	}
	f.blur[id] = true
	return nil
}

func (f *fakeSurface) ClearBlurBehind(id uint32) error {
	f.cleared++
	delete(f.blur, id)
	return nil
}

func (f *fakeSurface) SetOpacity(id uint32, v float64) error {
	f.opacity[id] = v
	return nil
}

func (f *fakeSurface) ClearOpacity(id uint32) error {
	f.opCleared++
	delete(f.opacity, id)
	return nil
}

func TestX11Native_BlurAndDisableThroughController(t *testing.T) {
	surface := newFakeSurface()
	c := accent.NewControllerWithNative(NewX11Native(surface, X11Options{}))

	if !c.ApplyBlurEffect(0x3a00007, accent.DefaultGradientColor) {
		t.Fatal("ApplyBlurEffect() = false")
	}
	if !surface.blur[0x3a00007] {
		t.Fatal("blur-behind not set")
	}
	if len(surface.opacity) != 0 {
		t.Fatal("opacity set without TintOpacity")
	}

	c.DisableEffect(0x3a00007)
	if surface.blur[0x3a00007] {
		t.Fatal("blur-behind not cleared")
	}
	if surface.opCleared != 0 {
		t.Fatal("opacity cleared without TintOpacity")
	}
}

func TestX11Native_TintOpacity(t *testing.T) {
	surface := newFakeSurface()
	c := accent.NewControllerWithNative(NewX11Native(surface, X11Options{TintOpacity: true}))

	if err := c.Apply(5, accent.AccentPolicy{AccentState: accent.AccentEnableBlurBehind, GradientColor: 0xFF000000}); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got := surface.opacity[5]; got < 0.49 || got > 0.51 {
		t.Fatalf("opacity = %v, want ~0.5", got)
	}

	if err := c.Apply(6, accent.BlurPolicy(0x00FFFFFF)); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got := surface.opacity[6]; got != 1 {
		t.Fatalf("opacity for zero alpha = %v, want 1", got)
	}

	c.DisableEffect(5)
	if _, ok := surface.opacity[5]; ok {
		t.Fatal("opacity not cleared on disable")
	}
}

func TestX11Native_GradientStatesUnsupported(t *testing.T) {
	c := accent.NewControllerWithNative(NewX11Native(newFakeSurface(), X11Options{}))

	for _, state := range []accent.AccentState{accent.AccentEnableGradient, accent.AccentEnableTransparentGradient} {
		err := c.Apply(1, accent.AccentPolicy{AccentState: state})
		if !errors.Is(err, ErrStateUnsupported) {
			t.Errorf("Apply(%v) error = %v, want ErrStateUnsupported", state, err)
		}
	}
}

func TestX11Native_SurfaceFailureReportsFalse(t *testing.T) {
	surface := newFakeSurface()
	surface.failBlur = errors.New("BadWindow")
	c := accent.NewControllerWithNative(NewX11Native(surface, X11Options{}))

	if c.ApplyBlurEffect(1, accent.DefaultGradientColor) {
		t.Fatal("ApplyBlurEffect() = true on surface failure")
	}
}

func TestX11Native_RejectsMalformedEnvelope(t *testing.T) {
	n := NewX11Native(newFakeSurface(), X11Options{})
	policy := accent.BlurPolicy(0)

	bad := accent.NewCompositionAttributeData(&policy)
	bad.Attribute = 20
	if err := n.SetWindowCompositionAttribute(1, &bad); err == nil {
		t.Fatal("expected error for wrong attribute")
	}

	bad = accent.NewCompositionAttributeData(&policy)
	bad.SizeOfData = 12
	if err := n.SetWindowCompositionAttribute(1, &bad); err == nil {
		t.Fatal("expected error for wrong size")
	}

	if err := n.SetWindowCompositionAttribute(1, &accent.CompositionAttributeData{Attribute: accent.WCAAccentPolicy}); err == nil {
		t.Fatal("expected error for nil policy")
	}
}

func TestResolveNativeKind(t *testing.T) {
	tests := []struct {
		kind, goos, display, want string
	}{
		{"auto", "windows", "", NativeWin32},
		{"auto", "linux", ":0", NativeX11},
		{"auto", "linux", "", NativeNone},
		{"auto", "darwin", ":0", NativeNone},
		{"", "windows", "", NativeWin32},
		{"x11", "windows", "", NativeX11},
		{"none", "windows", "", NativeNone},
	}
	for _, tt := range tests {
		if got := ResolveNativeKind(tt.kind, tt.goos, tt.display); got != tt.want {
			t.Errorf("ResolveNativeKind(%q, %q, %q) = %q, want %q", tt.kind, tt.goos, tt.display, got, tt.want)
		}
	}
}

func TestOpenNative_NoneIsUnsupported(t *testing.T) {
	n, release, err := OpenNative(NativeNone, "", X11Options{})
	defer release()
	if err != nil {
		t.Fatalf("OpenNative(none) error: %v", err)
	}
	if accent.IsSupported(n) {
		t.Fatal("none backend reported as supported")
	}
	if accent.NewControllerWithNative(n).ApplyBlurEffect(1, accent.DefaultGradientColor) {
		t.Fatal("apply through none backend succeeded")
	}
}

func TestOpenNative_UnknownKind(t *testing.T) {
	n, release, err := OpenNative("metal", "", X11Options{})
	defer release()
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if accent.IsSupported(n) {
		t.Fatal("unknown backend reported as supported")
	}
}
