//go:build !linux

package platform

// NewBackend reports ErrUnsupported; window enumeration is X11-only.
func NewBackend(display string) (Backend, error) {
	return nil, ErrUnsupported
}
