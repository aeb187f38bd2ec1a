package platform

import (
	"fmt"
	"os"
	"runtime"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/x11"
)

// Effect backend names accepted in config.
const (
	NativeAuto  = "auto"
	NativeWin32 = "win32"
	NativeX11   = "x11"
	NativeNone  = "none"
)

// ResolveNativeKind turns "auto" into a concrete backend for goos. X11 is
// chosen on Linux only when a display is reachable.
func ResolveNativeKind(kind, goos, display string) string {
	if kind != NativeAuto && kind != "" {
		return kind
	}
	switch goos {
	case "windows":
		return NativeWin32
	case "linux":
		if display != "" {
			return NativeX11
		}
	}
	return NativeNone
}

// OpenNative returns the effect entry point for kind along with a release
// function. Resolution failures degrade to an unsupported Native; the error
// is returned for reporting only.
func OpenNative(kind, display string, opts X11Options) (accent.Native, func(), error) {
	noop := func() {}
	if display == "" {
		display = os.Getenv("DISPLAY")
	}

	switch ResolveNativeKind(kind, runtime.GOOS, display) {
	case NativeWin32:
		n, err := accent.SystemNative()
		return n, noop, err
	case NativeX11:
		conn, err := x11.NewConnectionDisplay(display)
		if err != nil {
			err = fmt.Errorf("%w: x11: %v", accent.ErrUnsupported, err)
			return accent.Unsupported(err), noop, err
		}
		return NewX11NativeFromConnection(conn, opts), conn.Close, nil
	case NativeNone:
		return accent.Unsupported(nil), noop, nil
	default:
		err := fmt.Errorf("unknown effect backend %q", kind)
		return accent.Unsupported(err), noop, err
	}
}
