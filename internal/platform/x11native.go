package platform

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/x11"
)

// ErrStateUnsupported is returned for accent states X11 compositors have no
// property for.
var ErrStateUnsupported = errors.New("accent state has no X11 equivalent")

// EffectSurface is the set of window properties X11Native drives.
type EffectSurface interface {
	SetBlurBehind(windowID uint32) error
	ClearBlurBehind(windowID uint32) error
	SetOpacity(windowID uint32, opacity float64) error
	ClearOpacity(windowID uint32) error
}

// X11Options tunes the X11 translation.
type X11Options struct {
	// TintOpacity mirrors the gradient alpha into _NET_WM_WINDOW_OPACITY.
	TintOpacity bool
}

// X11Native implements accent.Native by translating accent policies into
// compositor hint properties.
type X11Native struct {
	surface EffectSurface
	opts    X11Options
}

var _ accent.Native = (*X11Native)(nil)

// NewX11Native drives effects through surface.
func NewX11Native(surface EffectSurface, opts X11Options) *X11Native {
	return &X11Native{surface: surface, opts: opts}
}

// NewX11NativeFromConnection drives effects on a live X connection.
func NewX11NativeFromConnection(conn *x11.Connection, opts X11Options) *X11Native {
	return NewX11Native(connSurface{conn: conn}, opts)
}

// SetWindowCompositionAttribute validates the envelope the same way the
// native entry point would and applies the matching X11 hints.
func (n *X11Native) SetWindowCompositionAttribute(hwnd accent.WindowHandle, data *accent.CompositionAttributeData) error {
	if data == nil || data.Data == nil {
		return fmt.Errorf("composition data is nil")
	}
	if data.Attribute != accent.WCAAccentPolicy {
		return fmt.Errorf("unsupported composition attribute %d", data.Attribute)
	}
	if data.SizeOfData != unsafe.Sizeof(accent.AccentPolicy{}) {
		return fmt.Errorf("composition data size %d does not match accent policy", data.SizeOfData)
	}
	if uint64(hwnd) > 0xFFFFFFFF {
		return fmt.Errorf("window handle 0x%x exceeds X11 id range", uintptr(hwnd))
	}

	win := uint32(hwnd)
	policy := *data.Data

	switch policy.AccentState {
	case accent.AccentDisabled:
		blurErr := n.surface.ClearBlurBehind(win)
		var opacityErr error
		if n.opts.TintOpacity {
			opacityErr = n.surface.ClearOpacity(win)
		}
		return errors.Join(blurErr, opacityErr)

	case accent.AccentEnableBlurBehind, accent.AccentEnableAcrylicBlurBehind:
		if err := n.surface.SetBlurBehind(win); err != nil {
			return err
		}
		if n.opts.TintOpacity {
			return n.surface.SetOpacity(win, tintOpacity(policy.GradientColor))
		}
		return nil

	default:
		return fmt.Errorf("%w: %s", ErrStateUnsupported, policy.AccentState)
	}
}

// tintOpacity maps tint alpha to window opacity. A more opaque tint yields
// a less transparent window; a zero alpha leaves the window opaque.
func tintOpacity(color uint32) float64 {
	a, _, _, _ := accent.Channels(color)
	if a == 0 {
		return 1
	}
	return 1 - float64(a)/255*0.5
}

type connSurface struct {
	conn *x11.Connection
}

func (s connSurface) SetBlurBehind(windowID uint32) error {
	return s.conn.SetBlurBehind(xproto.Window(windowID))
}

func (s connSurface) ClearBlurBehind(windowID uint32) error {
	return s.conn.ClearBlurBehind(xproto.Window(windowID))
}

func (s connSurface) SetOpacity(windowID uint32, opacity float64) error {
	return s.conn.SetOpacity(xproto.Window(windowID), opacity)
}

func (s connSurface) ClearOpacity(windowID uint32) error {
	return s.conn.ClearOpacity(xproto.Window(windowID))
}
