package accent

import (
	"errors"
	"fmt"
	"sync"
)

// WindowHandle is an opaque, pointer-sized native window identifier owned by
// the caller.
type WindowHandle uintptr

var (
	// ErrUnsupported means the composition entry point is not available on
	// this host.
	ErrUnsupported = errors.New("window composition attribute is not supported on this platform")
	// ErrNullHandle means a zero window handle was supplied.
	ErrNullHandle = errors.New("window handle is zero")
	// ErrInvalidAccentState means the requested state has no dispatchable code.
	ErrInvalidAccentState = errors.New("invalid accent state")
	// ErrNativeFault means the native layer panicked during the call.
	ErrNativeFault = errors.New("native composition call faulted")
)

// CallError reports a native call that completed but signalled failure.
type CallError struct {
	Handle WindowHandle
	State  AccentState
	Err    error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("set %s accent on window 0x%x failed", e.State, uintptr(e.Handle))
	}
	return fmt.Sprintf("set %s accent on window 0x%x failed: %v", e.State, uintptr(e.Handle), e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Native is the seam to the OS composition-attribute entry point.
// Implementations must treat data as borrowed for the duration of the call.
type Native interface {
	SetWindowCompositionAttribute(hwnd WindowHandle, data *CompositionAttributeData) error
}

// NativeFunc adapts a plain function to Native.
type NativeFunc func(hwnd WindowHandle, data *CompositionAttributeData) error

func (f NativeFunc) SetWindowCompositionAttribute(hwnd WindowHandle, data *CompositionAttributeData) error {
	return f(hwnd, data)
}

// unsupportedNative fails every call; it stands in when resolution fails.
type unsupportedNative struct {
	err error
}

func (u unsupportedNative) SetWindowCompositionAttribute(WindowHandle, *CompositionAttributeData) error {
	return u.err
}

// Unsupported returns a Native that fails every call with ErrUnsupported,
// wrapping cause when non-nil.
func Unsupported(cause error) Native {
	if cause == nil {
		return unsupportedNative{err: ErrUnsupported}
	}
	if errors.Is(cause, ErrUnsupported) {
		return unsupportedNative{err: cause}
	}
	return unsupportedNative{err: fmt.Errorf("%w: %v", ErrUnsupported, cause)}
}

// IsSupported reports whether n can reach a real entry point.
func IsSupported(n Native) bool {
	_, stub := n.(unsupportedNative)
	return n != nil && !stub
}

// resolveOnce binds the platform entry point the first time it is needed.
var resolveOnce = sync.OnceValues(resolveNative)

// SystemNative returns the process-wide native binding and the resolution
// error, if any. On failure the returned Native is an unsupported stub.
func SystemNative() (Native, error) {
	n, err := resolveOnce()
	if err != nil {
		return Unsupported(err), err
	}
	return n, nil
}

// IsUnsupported reports whether err stems from a missing entry point.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}
