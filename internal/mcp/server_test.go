package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/ipc"
)

type fakeClient struct {
	applied  []ipc.ApplyEffectPayload
	disabled []uint32
	windows  ipc.WindowsData
	err      error
}

func (f *fakeClient) ApplyEffect(req ipc.ApplyEffectPayload) (*ipc.EffectResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, req)
	window := req.Window
	if window == 0 {
		window = 99
	}
	return &ipc.EffectResult{Window: window, State: req.State, Color: "0x01FFFFFF"}, nil
}

func (f *fakeClient) DisableEffect(window uint32) (*ipc.EffectResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.disabled = append(f.disabled, window)
	return &ipc.EffectResult{Window: window, State: "disabled"}, nil
}

func (f *fakeClient) ListWindows() (*ipc.WindowsData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.windows, nil
}

func newTestServer(t *testing.T, client EffectClient) *Server {
	t.Helper()
	s, err := NewServer(client)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestNewServer_RequiresClient(t *testing.T) {
	if _, err := NewServer(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestHandleApplyEffect(t *testing.T) {
	client := &fakeClient{}
	s := newTestServer(t, client)

	_, out, err := s.handleApplyEffect(context.Background(), nil, ApplyEffectInput{
		Window: 0x1a00007,
		State:  "Acrylic-Blur-Behind",
		Color:  "0x80000000",
		Flags:  []string{"draw-all-borders"},
	})
	if err != nil {
		t.Fatalf("apply_effect: %v", err)
	}
	if out.Window != 0x1a00007 || out.State != "acrylic" {
		t.Fatalf("output = %+v", out)
	}
	if len(client.applied) != 1 || client.applied[0].State != "acrylic" || client.applied[0].Color != "0x80000000" {
		t.Fatalf("forwarded = %+v", client.applied)
	}

	_, out, err = s.handleApplyEffect(context.Background(), nil, ApplyEffectInput{State: "3"})
	if err != nil {
		t.Fatalf("apply_effect active: %v", err)
	}
	if out.Window != 99 || out.State != "blur" {
		t.Fatalf("output = %+v", out)
	}
}

func TestHandleApplyEffect_RejectsInvalidState(t *testing.T) {
	client := &fakeClient{}
	s := newTestServer(t, client)

	for _, state := range []string{"", "5", "frosted"} {
		_, _, err := s.handleApplyEffect(context.Background(), nil, ApplyEffectInput{Window: 1, State: state})
		if !errors.Is(err, accent.ErrInvalidAccentState) {
			t.Errorf("state %q: err = %v, want ErrInvalidAccentState", state, err)
		}
	}
	if len(client.applied) != 0 {
		t.Fatalf("invalid states reached the daemon: %+v", client.applied)
	}
}

func TestHandleDisableEffect(t *testing.T) {
	client := &fakeClient{}
	s := newTestServer(t, client)

	_, out, err := s.handleDisableEffect(context.Background(), nil, DisableEffectInput{Window: 7})
	if err != nil {
		t.Fatalf("disable_effect: %v", err)
	}
	if out.Window != 7 || out.State != "disabled" || len(client.disabled) != 1 {
		t.Fatalf("output = %+v, disabled = %v", out, client.disabled)
	}

	client.err = errors.New("daemon error: no active window")
	if _, _, err := s.handleDisableEffect(context.Background(), nil, DisableEffectInput{}); err == nil {
		t.Fatal("expected daemon error to surface")
	}
}

func TestHandleListWindows(t *testing.T) {
	client := &fakeClient{windows: ipc.WindowsData{
		Windows: []ipc.WindowInfo{
			{ID: 1, Class: "kitty", Title: "a", Effect: "blur"},
			{ID: 2, Class: "firefox", Title: "b"},
			{ID: 3, Class: "Kitty", Title: "c"},
		},
		Active: 3,
	}}
	s := newTestServer(t, client)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(out.Windows) != 3 || !out.Windows[2].Active || out.Windows[0].Active {
		t.Fatalf("output = %+v", out)
	}

	_, out, err = s.handleListWindows(context.Background(), nil, ListWindowsInput{Class: "KITTY"})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(out.Windows) != 2 || out.Windows[0].Effect != "blur" {
		t.Fatalf("filtered output = %+v", out)
	}
}

func TestHandleListAccentStates(t *testing.T) {
	s := newTestServer(t, &fakeClient{})

	_, out, err := s.handleListAccentStates(context.Background(), nil, ListAccentStatesInput{})
	if err != nil {
		t.Fatalf("list_accent_states: %v", err)
	}
	if len(out.States) != 5 {
		t.Fatalf("states = %+v", out.States)
	}
	for i, st := range out.States {
		if st.Code != uint32(i) {
			t.Errorf("states[%d].Code = %d", i, st.Code)
		}
	}
	if out.States[4].Name != "acrylic" {
		t.Fatalf("states[4] = %+v", out.States[4])
	}
	if len(out.Flags) == 0 || out.Flags[0] != "draw-all-borders" {
		t.Fatalf("flags = %v", out.Flags)
	}
}
