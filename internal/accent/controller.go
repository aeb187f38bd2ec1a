package accent

import (
	"fmt"
	"runtime"
	"sync"
)

// Controller translates accent requests into composition-attribute calls.
//
// A Controller holds no per-window state; every call builds a fresh policy
// and envelope. Calls for a given window must be made from the thread that
// owns it, and concurrent calls on one handle must be serialized by the
// caller.
type Controller struct {
	native Native
}

// NewController returns a controller bound to the process-wide native entry
// point. On hosts without the entry point every apply reports failure.
func NewController() *Controller {
	n, _ := SystemNative()
	return &Controller{native: n}
}

// NewControllerWithNative returns a controller that dispatches through n.
// A nil n behaves as an unsupported platform.
func NewControllerWithNative(n Native) *Controller {
	if n == nil {
		n = Unsupported(nil)
	}
	return &Controller{native: n}
}

// Supported reports whether the controller is bound to a usable entry point.
func (c *Controller) Supported() bool {
	return c != nil && IsSupported(c.native)
}

// ApplyBlurEffect applies acrylic blur-behind tinted with gradientColor
// (ABGR). It returns false on any failure, including a missing entry point
// or a native call that reports failure.
func (c *Controller) ApplyBlurEffect(hwnd WindowHandle, gradientColor uint32) bool {
	return c.Apply(hwnd, BlurPolicy(gradientColor)) == nil
}

// DisableEffect removes any accent from the window. It never fails.
func (c *Controller) DisableEffect(hwnd WindowHandle) {
	defer func() { _ = recover() }()
	_ = c.Apply(hwnd, DisabledPolicy())
}

// Apply dispatches policy for hwnd. The policy is copied, so the caller's
// value is never retained.
func (c *Controller) Apply(hwnd WindowHandle, policy AccentPolicy) (err error) {
	if !policy.AccentState.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAccentState, uint32(policy.AccentState))
	}
	if hwnd == 0 {
		return ErrNullHandle
	}
	if c == nil || c.native == nil {
		return ErrUnsupported
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNativeFault, r)
		}
	}()

	p := policy
	data := NewCompositionAttributeData(&p)
	callErr := c.native.SetWindowCompositionAttribute(hwnd, &data)
	runtime.KeepAlive(&p)
	if callErr != nil {
		if IsUnsupported(callErr) {
			return callErr
		}
		return &CallError{Handle: hwnd, State: policy.AccentState, Err: callErr}
	}
	return nil
}

var (
	defaultOnce       sync.Once
	defaultController *Controller
)

// Default returns the process-wide controller.
func Default() *Controller {
	defaultOnce.Do(func() {
		defaultController = NewController()
	})
	return defaultController
}

// ApplyBlurEffect applies acrylic blur through the default controller.
func ApplyBlurEffect(hwnd WindowHandle, gradientColor uint32) bool {
	return Default().ApplyBlurEffect(hwnd, gradientColor)
}

// DisableEffect removes any accent through the default controller.
func DisableEffect(hwnd WindowHandle) {
	Default().DisableEffect(hwnd)
}
