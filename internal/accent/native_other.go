//go:build !windows

package accent

import (
	"fmt"
	"runtime"
)

func resolveNative() (Native, error) {
	return nil, fmt.Errorf("%w (GOOS=%s)", ErrUnsupported, runtime.GOOS)
}
