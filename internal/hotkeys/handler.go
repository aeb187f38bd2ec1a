package hotkeys

import (
	"fmt"
	"log"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/glasspane/internal/x11"
)

// Handler grabs global key sequences on its own X11 connection and runs the
// bound callbacks from the connection's event loop.
type Handler struct {
	conn *x11.Connection

	mu      sync.Mutex
	bound   []string
	running bool
	closed  bool
	done    chan struct{}
}

var ignoreModsOnce sync.Once

// NewHandler connects to display (empty means $DISPLAY) for key grabs.
func NewHandler(display string) (*Handler, error) {
	conn, err := x11.NewConnectionDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11 for hotkeys: %w", err)
	}
	keybind.Initialize(conn.XUtil)

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})

	return &Handler{conn: conn, done: make(chan struct{})}, nil
}

// RegisterFunc binds keySequence (e.g. "Mod4-Shift-b") to callback.
// Callbacks run on the event loop goroutine and should return promptly.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.conn.XUtil, h.conn.Root, keySequence, true); err != nil {
		return fmt.Errorf("failed to bind %q: %w", keySequence, err)
	}

	h.mu.Lock()
	h.bound = append(h.bound, keySequence)
	h.mu.Unlock()
	log.Printf("Hotkey registered: %s", keySequence)
	return nil
}

// Run dispatches key events until Close is called.
func (h *Handler) Run() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	defer close(h.done)
	h.conn.EventLoop()
}

// Close releases every grab, stops Run and disconnects. When Run is active,
// Close returns only after it has exited, so no callback is still running.
// Close must not be called from a callback.
func (h *Handler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	bound := h.bound
	h.bound = nil
	running := h.running
	h.mu.Unlock()

	for _, seq := range bound {
		mods, codes, err := keybind.ParseString(h.conn.XUtil, seq)
		if err != nil {
			continue
		}
		for _, code := range codes {
			keybind.Ungrab(h.conn.XUtil, h.conn.Root, mods, code)
		}
	}
	h.conn.QuitEventLoop()
	h.conn.Close()
	if running {
		<-h.done
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
