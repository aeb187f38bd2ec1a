package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
)

const (
	// BlurBehindRegionAtom asks KWin/picom to blur behind the listed
	// rectangles; an empty list means the whole window.
	BlurBehindRegionAtom = "_KDE_NET_WM_BLUR_BEHIND_REGION"
	// OpacityAtom carries window opacity scaled to 0..0xFFFFFFFF.
	OpacityAtom = "_NET_WM_WINDOW_OPACITY"
)

// SetBlurBehind requests compositor blur behind the entire window.
func (c *Connection) SetBlurBehind(windowID xproto.Window) error {
	if err := xprop.ChangeProp32(c.XUtil, windowID, BlurBehindRegionAtom, "CARDINAL"); err != nil {
		return fmt.Errorf("failed to set %s on 0x%x: %w", BlurBehindRegionAtom, windowID, err)
	}
	return nil
}

// ClearBlurBehind removes the blur-behind request.
func (c *Connection) ClearBlurBehind(windowID xproto.Window) error {
	return c.deleteProperty(windowID, BlurBehindRegionAtom)
}

// BlurBehindEnabled reports whether the blur-behind property is present.
func (c *Connection) BlurBehindEnabled(windowID xproto.Window) (bool, error) {
	atom, err := xprop.Atm(c.XUtil, BlurBehindRegionAtom)
	if err != nil {
		return false, err
	}
	reply, err := xproto.GetProperty(c.XUtil.Conn(), false, windowID, atom,
		xproto.GetPropertyTypeAny, 0, 0).Reply()
	if err != nil {
		return false, fmt.Errorf("failed to query %s on 0x%x: %w", BlurBehindRegionAtom, windowID, err)
	}
	return reply.Type != xproto.AtomNone, nil
}

// SetOpacity sets window opacity in [0, 1].
func (c *Connection) SetOpacity(windowID xproto.Window, opacity float64) error {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	if err := ewmh.WmWindowOpacitySet(c.XUtil, windowID, opacity); err != nil {
		return fmt.Errorf("failed to set %s on 0x%x: %w", OpacityAtom, windowID, err)
	}
	return nil
}

// ClearOpacity restores the default (opaque) window opacity.
func (c *Connection) ClearOpacity(windowID xproto.Window) error {
	return c.deleteProperty(windowID, OpacityAtom)
}

func (c *Connection) deleteProperty(windowID xproto.Window, name string) error {
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", name, err)
	}
	if err := xproto.DeletePropertyChecked(c.XUtil.Conn(), windowID, atom).Check(); err != nil {
		return fmt.Errorf("failed to delete %s on 0x%x: %w", name, windowID, err)
	}
	return nil
}
