package platform

import "errors"

// ErrUnsupported is returned when no window backend exists for this host.
var ErrUnsupported = errors.New("window backend is not supported on this platform")

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Window contains metadata for a top-level window.
type Window struct {
	ID         WindowID
	PID        int
	Class      string
	Title      string
	Desktop    int
	BlurBehind bool // a blur-behind hint is present, whoever set it
}

// Backend abstracts window enumeration across platforms.
type Backend interface {
	ListWindows() ([]Window, error)
	ActiveWindow() (WindowID, error)
	Close()
}
