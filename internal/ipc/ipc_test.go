package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/daemon"
	"github.com/1broseidon/glasspane/internal/platform"
)

type fakeEffects struct {
	mu       sync.Mutex
	applied  map[uint32]accent.AccentPolicy
	disabled []uint32
	err      error
}

func newFakeEffects() *fakeEffects {
	return &fakeEffects{applied: make(map[uint32]accent.AccentPolicy)}
}

func (f *fakeEffects) Apply(_ context.Context, window uint32, policy accent.AccentPolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.applied[window] = policy
	return nil
}

func (f *fakeEffects) Disable(_ context.Context, window uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.applied, window)
	f.disabled = append(f.disabled, window)
	return nil
}

func (f *fakeEffects) Applied() []daemon.AppliedEffect {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []daemon.AppliedEffect
	for id, p := range f.applied {
		out = append(out, daemon.AppliedEffect{Window: id, State: p.AccentState, Color: p.GradientColor, Policy: p})
	}
	return out
}

func (f *fakeEffects) Supported() bool { return true }

func (f *fakeEffects) policy(window uint32) accent.AccentPolicy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied[window]
}

func (f *fakeEffects) disabledWindows() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.disabled...)
}

func (f *fakeEffects) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeBackend struct {
	windows []platform.Window
	active  platform.WindowID
}

func (b *fakeBackend) ListWindows() ([]platform.Window, error) { return b.windows, nil }
func (b *fakeBackend) ActiveWindow() (platform.WindowID, error) { return b.active, nil }
func (b *fakeBackend) Close() {}

func startServer(t *testing.T, effects EffectService, backend platform.Backend) (*Server, chan struct{}) {
	t.Helper()
	runtimeDir, err := os.MkdirTemp("", "gp")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(runtimeDir) })
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Backend = "none"
	cfg.DefaultColor = "0x40FFFFFF"
	reload := make(chan struct{}, 1)

	srv, err := NewServer(cfg, effects, backend, reload)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, reload
}

func TestApplyAndDisableRoundTrip(t *testing.T) {
	effects := newFakeEffects()
	startServer(t, effects, &fakeBackend{active: 0x2c00003})
	client := NewClient()

	res, err := client.ApplyEffect(ApplyEffectPayload{Window: 0x1a00007, State: "acrylic"})
	if err != nil {
		t.Fatalf("ApplyEffect: %v", err)
	}
	if res.Window != 0x1a00007 || res.State != "acrylic" || res.Color != "0x40FFFFFF" {
		t.Fatalf("result = %+v", res)
	}
	want := accent.AccentPolicy{AccentState: accent.AccentEnableAcrylicBlurBehind, GradientColor: 0x40FFFFFF}
	if got := effects.policy(0x1a00007); got != want {
		t.Fatalf("applied policy = %+v, want %+v", got, want)
	}

	res, err = client.ApplyEffect(ApplyEffectPayload{State: "blur", Color: "#112233", Flags: []string{"draw-all-borders"}})
	if err != nil {
		t.Fatalf("ApplyEffect active: %v", err)
	}
	if res.Window != 0x2c00003 {
		t.Fatalf("window 0 should target active window, got 0x%x", res.Window)
	}
	got := effects.policy(0x2c00003)
	if got.GradientColor != 0xFF112233 || got.AccentFlags != accent.FlagDrawAllBorders {
		t.Fatalf("applied policy = %+v", got)
	}

	if _, err := client.DisableEffect(0x1a00007); err != nil {
		t.Fatalf("DisableEffect: %v", err)
	}
	if disabled := effects.disabledWindows(); len(disabled) != 1 || disabled[0] != 0x1a00007 {
		t.Fatalf("disabled = %v", disabled)
	}
}

func TestApplyEffect_Errors(t *testing.T) {
	effects := newFakeEffects()
	startServer(t, effects, nil)
	client := NewClient()

	if _, err := client.ApplyEffect(ApplyEffectPayload{Window: 1}); err == nil || !strings.Contains(err.Error(), "state is required") {
		t.Fatalf("missing state: %v", err)
	}
	if _, err := client.ApplyEffect(ApplyEffectPayload{Window: 1, State: "frosted"}); err == nil {
		t.Fatal("expected invalid state error")
	}
	if _, err := client.ApplyEffect(ApplyEffectPayload{State: "blur"}); err == nil {
		t.Fatal("expected error when no backend can resolve the active window")
	}

	effects.fail(errors.New("access denied"))
	_, err := client.ApplyEffect(ApplyEffectPayload{Window: 1, State: "blur"})
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("native failure not surfaced: %v", err)
	}

	if _, err := client.ListWindows(); err == nil {
		t.Fatal("expected list error without backend")
	}
}

func TestListWindowsAndStatus(t *testing.T) {
	effects := newFakeEffects()
	backend := &fakeBackend{
		windows: []platform.Window{
			{ID: 5, Class: "kitty", Title: "shell", PID: 42, BlurBehind: true},
			{ID: 6, Class: "firefox", Title: "web"},
			{ID: 7, Class: "picom-managed", BlurBehind: true},
		},
		active: 6,
	}
	startServer(t, effects, backend)
	client := NewClient()

	if _, err := client.ApplyEffect(ApplyEffectPayload{Window: 5, State: "blur"}); err != nil {
		t.Fatalf("ApplyEffect: %v", err)
	}

	data, err := client.ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(data.Windows) != 3 || data.Active != 6 {
		t.Fatalf("windows = %+v", data)
	}
	if data.Windows[0].Effect != "blur" || data.Windows[1].Effect != "" || data.Windows[2].Effect != EffectExternalHint {
		t.Fatalf("effects = %q, %q, %q", data.Windows[0].Effect, data.Windows[1].Effect, data.Windows[2].Effect)
	}

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || status.Backend != "none" || len(status.Applied) != 1 {
		t.Fatalf("status = %+v", status)
	}
	if status.Applied[0].Window != 5 || status.Applied[0].State != "blur" {
		t.Fatalf("applied = %+v", status.Applied[0])
	}
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestReloadNotifiesDaemon(t *testing.T) {
	srv, reload := startServer(t, newFakeEffects(), nil)

	home := os.Getenv("HOME")
	cfgDir := filepath.Join(home, ".config", "glasspane")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	body := "rules:\n  - class: kitty\n    effect: blur\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := NewClient().Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	select {
	case <-reload:
	default:
		t.Fatal("reload channel not signalled")
	}
	if got := srv.GetConfig(); len(got.Rules) != 1 || got.Rules[0].Class != "kitty" {
		t.Fatalf("config not swapped: %+v", got.Rules)
	}
}

func TestUnknownCommand(t *testing.T) {
	startServer(t, newFakeEffects(), nil)
	_, err := NewClient().sendRequest(&Request{Command: "FROB"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("unknown command: %v", err)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	if err := NewClient().Ping(); err == nil {
		t.Fatal("expected connection error")
	}
}

type blockingEffects struct {
	*fakeEffects
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEffects) Apply(ctx context.Context, window uint32, policy accent.AccentPolicy) error {
	close(b.entered)
	<-b.release
	return b.fakeEffects.Apply(ctx, window, policy)
}

func TestStopWaitsForInFlightRequests(t *testing.T) {
	effects := &blockingEffects{
		fakeEffects: newFakeEffects(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	srv, _ := startServer(t, effects, &fakeBackend{})

	applied := make(chan error, 1)
	go func() {
		_, err := NewClient().ApplyEffect(ApplyEffectPayload{Window: 0x400001, State: "blur"})
		applied <- err
	}()
	<-effects.entered

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a request was still being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(effects.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the request finished")
	}
	if err := <-applied; err != nil {
		t.Fatalf("ApplyEffect: %v", err)
	}
	if effects.policy(0x400001).AccentState != accent.AccentEnableBlurBehind {
		t.Fatal("in-flight apply was not completed")
	}
}
