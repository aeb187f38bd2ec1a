//go:build windows

package accent

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                            = windows.NewLazySystemDLL("user32.dll")
	procSetWindowCompositionAttribute = user32.NewProc("SetWindowCompositionAttribute")
)

type user32Native struct {
	proc *windows.LazyProc
}

func resolveNative() (Native, error) {
	if err := procSetWindowCompositionAttribute.Find(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return user32Native{proc: procSetWindowCompositionAttribute}, nil
}

// SetWindowCompositionAttribute calls user32!SetWindowCompositionAttribute.
// The call must be made on the thread that owns hwnd.
func (n user32Native) SetWindowCompositionAttribute(hwnd WindowHandle, data *CompositionAttributeData) error {
	r1, _, callErr := n.proc.Call(uintptr(hwnd), uintptr(unsafe.Pointer(data)))
	runtime.KeepAlive(data)
	runtime.KeepAlive(data.Data)
	if r1 != 0 {
		return nil
	}

	var errno windows.Errno
	if errors.As(callErr, &errno) && errno != 0 {
		return errno
	}
	return errors.New("SetWindowCompositionAttribute returned FALSE")
}
