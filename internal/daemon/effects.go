package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/effectlog"
)

// AppliedEffect records the policy the daemon last applied to a window.
type AppliedEffect struct {
	Window uint32              `json:"window"`
	State  accent.AccentState  `json:"state"`
	Flags  uint32              `json:"flags"`
	Color  uint32              `json:"color"`
	Rule   string              `json:"rule,omitempty"` // rule class when applied by the reconciler
	Policy accent.AccentPolicy `json:"-"`
}

type effectState struct {
	Windows []AppliedEffect `json:"windows"`
}

// Effects applies and reverts effects through a Dispatcher and remembers
// which windows carry one, so they can be reverted on shutdown.
type Effects struct {
	controller *accent.Controller
	dispatcher *Dispatcher
	log        *effectlog.Logger
	statePath  string

	// opMu serializes state changes so a native call and the bookkeeping
	// that follows it are never interleaved with another change.
	opMu sync.Mutex

	// saveMu guards the state file.
	saveMu sync.Mutex

	mu      sync.Mutex
	applied map[uint32]AppliedEffect
}

// NewEffects wires a controller to a dispatcher. log may be nil. An empty
// statePath disables persistence.
func NewEffects(controller *accent.Controller, dispatcher *Dispatcher, log *effectlog.Logger, statePath string) *Effects {
	return &Effects{
		controller: controller,
		dispatcher: dispatcher,
		log:        log,
		statePath:  statePath,
		applied:    make(map[uint32]AppliedEffect),
	}
}

// Supported reports whether the underlying controller has a native binding.
func (e *Effects) Supported() bool {
	return e.controller.Supported()
}

// Apply applies policy to window on the dispatcher thread.
func (e *Effects) Apply(ctx context.Context, window uint32, policy accent.AccentPolicy) error {
	return e.apply(ctx, window, policy, "")
}

func (e *Effects) apply(ctx context.Context, window uint32, policy accent.AccentPolicy, rule string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.applyLocked(ctx, window, policy, rule)
}

func (e *Effects) applyLocked(ctx context.Context, window uint32, policy accent.AccentPolicy, rule string) error {
	var callErr error
	if err := e.dispatcher.Do(ctx, func() {
		callErr = e.controller.Apply(accent.WindowHandle(window), policy)
	}); err != nil {
		return err
	}

	entry := effectlog.Entry{Action: effectlog.ActionApply, Window: window, Policy: &policy, Rule: rule}
	if callErr != nil {
		entry.Action = effectlog.ActionFailed
		entry.Err = callErr
		e.log.Log(entry)
		return callErr
	}

	e.mu.Lock()
	if policy.AccentState == accent.AccentDisabled {
		delete(e.applied, window)
		entry.Action = effectlog.ActionDisable
	} else {
		e.applied[window] = AppliedEffect{
			Window: window,
			State:  policy.AccentState,
			Flags:  policy.AccentFlags,
			Color:  policy.GradientColor,
			Rule:   rule,
			Policy: policy,
		}
	}
	e.mu.Unlock()

	e.log.Log(entry)
	e.persist()
	return nil
}

// Disable reverts window to the disabled state. Only dispatch failures are
// reported; the revert itself never fails.
func (e *Effects) Disable(ctx context.Context, window uint32) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.disableLocked(ctx, window)
}

func (e *Effects) disableLocked(ctx context.Context, window uint32) error {
	if err := e.dispatcher.Do(ctx, func() {
		e.controller.DisableEffect(accent.WindowHandle(window))
	}); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.applied, window)
	e.mu.Unlock()

	disabled := accent.DisabledPolicy()
	e.log.Log(effectlog.Entry{Action: effectlog.ActionDisable, Window: window, Policy: &disabled})
	e.persist()
	return nil
}

// Toggle disables window if it carries an effect and applies policy
// otherwise. It reports whether an effect is now applied. The check and the
// change happen as one step with respect to other Effects calls.
func (e *Effects) Toggle(ctx context.Context, window uint32, policy accent.AccentPolicy) (bool, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if _, ok := e.Lookup(window); ok {
		return false, e.disableLocked(ctx, window)
	}
	if err := e.applyLocked(ctx, window, policy, ""); err != nil {
		return false, err
	}
	return policy.AccentState != accent.AccentDisabled, nil
}

// DisableAll reverts every window the daemon has applied an effect to.
func (e *Effects) DisableAll(ctx context.Context) {
	for _, a := range e.Applied() {
		if err := e.Disable(ctx, a.Window); err != nil {
			return
		}
	}
}

// Applied returns the tracked effects ordered by window id.
func (e *Effects) Applied() []AppliedEffect {
	e.mu.Lock()
	out := make([]AppliedEffect, 0, len(e.applied))
	for _, a := range e.applied {
		out = append(out, a)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Window < out[j].Window })
	return out
}

// Lookup returns the tracked effect for window.
func (e *Effects) Lookup(window uint32) (AppliedEffect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.applied[window]
	return a, ok
}

// Retain forgets every tracked window not in live. It returns the ids that
// were dropped.
func (e *Effects) Retain(live map[uint32]bool) []uint32 {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	var dropped []uint32
	for id := range e.applied {
		if !live[id] {
			dropped = append(dropped, id)
			delete(e.applied, id)
		}
	}
	e.mu.Unlock()

	if len(dropped) > 0 {
		sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
		e.persist()
	}
	return dropped
}

// Restore adopts the effects recorded by a previous daemon run so they are
// reverted on shutdown like any other.
func (e *Effects) Restore() error {
	if e.statePath == "" {
		return nil
	}
	data, err := os.ReadFile(e.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read effect state: %w", err)
	}

	var state effectState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse effect state: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range state.Windows {
		if a.Window == 0 || !a.State.Valid() || a.State == accent.AccentDisabled {
			continue
		}
		a.Policy = accent.AccentPolicy{
			AccentState:   a.State,
			AccentFlags:   a.Flags,
			GradientColor: a.Color,
		}
		e.applied[a.Window] = a
	}
	return nil
}

func (e *Effects) persist() {
	if e.statePath == "" {
		return
	}
	if err := e.save(); err != nil {
		e.log.Log(effectlog.Entry{Action: effectlog.ActionFailed, Err: err})
	}
}

// save snapshots the tracked effects and swaps them into place, so a reader
// never sees a partially written file.
func (e *Effects) save() error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	data, err := json.MarshalIndent(effectState{Windows: e.Applied()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode effect state: %w", err)
	}
	tmp := e.statePath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write effect state: %w", err)
	}
	if err := os.Rename(tmp, e.statePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace effect state: %w", err)
	}
	return nil
}
