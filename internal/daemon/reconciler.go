package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/effectlog"
	"github.com/1broseidon/glasspane/internal/platform"
)

// WindowLister returns the current top-level windows.
type WindowLister interface {
	ListWindows() ([]platform.Window, error)
}

// ReconcilerConfig holds configuration for the rule reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
	EventLog *effectlog.Logger
}

// RuleReconciler periodically applies the configured per-class rules to
// every matching window.
type RuleReconciler struct {
	interval time.Duration
	windows  WindowLister
	effects  *Effects
	logger   *slog.Logger
	eventLog *effectlog.Logger
	stopped  chan struct{}

	// pass keeps ReconcileNow and the ticker from running passes at once.
	pass sync.Mutex

	mu           sync.Mutex
	rules        []config.Rule
	defaultColor uint32
	seen         map[uint32]accent.AccentPolicy
}

// NewRuleReconciler creates a reconciler for cfg's rules.
func NewRuleReconciler(rc ReconcilerConfig, cfg *config.Config, windows WindowLister, effects *Effects) *RuleReconciler {
	interval := rc.Interval
	if interval <= 0 {
		interval = time.Duration(config.DefaultReconcileInterval) * time.Second
	}
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &RuleReconciler{
		interval: interval,
		windows:  windows,
		effects:  effects,
		logger:   logger,
		eventLog: rc.EventLog,
		stopped:  make(chan struct{}),
		seen:     make(map[uint32]accent.AccentPolicy),
	}
	r.UpdateConfig(cfg)
	return r
}

// UpdateConfig swaps in a new rule set. Windows are re-evaluated on the next
// pass, and only those whose effective policy changed are touched.
func (r *RuleReconciler) UpdateConfig(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg == nil {
		r.rules = nil
		r.defaultColor = accent.DefaultGradientColor
		return
	}
	r.rules = append([]config.Rule(nil), cfg.Rules...)
	r.defaultColor = cfg.DefaultColorValue()
}

// Run starts the reconciliation loop. Blocks until ctx is cancelled and any
// pass in progress has finished. Run must be called at most once.
func (r *RuleReconciler) Run(ctx context.Context) {
	defer close(r.stopped)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// Done is closed once Run has returned. After that the reconciler no longer
// touches any window.
func (r *RuleReconciler) Done() <-chan struct{} {
	return r.stopped
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *RuleReconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}

func (r *RuleReconciler) reconcile(ctx context.Context) {
	r.pass.Lock()
	defer r.pass.Unlock()

	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	windows, err := r.windows.ListWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return
	}

	r.mu.Lock()
	rules := r.rules
	defaultColor := r.defaultColor
	r.mu.Unlock()

	live := make(map[uint32]bool, len(windows))
	for _, w := range windows {
		live[uint32(w.ID)] = true
	}
	r.forgetClosed(live)

	for _, w := range windows {
		if ctx.Err() != nil {
			return
		}
		r.reconcileWindow(ctx, w, rules, defaultColor)
	}
}

func (r *RuleReconciler) forgetClosed(live map[uint32]bool) {
	r.mu.Lock()
	for id := range r.seen {
		if !live[id] {
			delete(r.seen, id)
		}
	}
	r.mu.Unlock()

	for _, id := range r.effects.Retain(live) {
		r.logger.Debug("reconciler: window closed", "window_id", id)
	}
}

func (r *RuleReconciler) reconcileWindow(ctx context.Context, w platform.Window, rules []config.Rule, defaultColor uint32) {
	id := uint32(w.ID)
	rule, ok := matchRule(rules, w)
	if !ok {
		r.mu.Lock()
		_, tracked := r.seen[id]
		delete(r.seen, id)
		r.mu.Unlock()

		// A rule stopped matching; revert what the reconciler put there.
		if tracked {
			if a, ok := r.effects.Lookup(id); ok && a.Rule != "" {
				if err := r.effects.Disable(ctx, id); err != nil {
					r.logger.Warn("reconciler: failed to revert effect", "window_id", id, "error", err)
				}
			}
		}
		return
	}

	policy, err := rule.Policy(defaultColor)
	if err != nil {
		r.logger.Warn("reconciler: invalid rule", "class", rule.Class, "error", err)
		return
	}

	r.mu.Lock()
	prev, tracked := r.seen[id]
	r.mu.Unlock()
	if tracked && prev == policy {
		return
	}

	r.eventLog.Log(effectlog.Entry{
		Action: effectlog.ActionRule,
		Window: id,
		Policy: &policy,
		Class:  w.Class,
		Rule:   rule.Class,
	})

	if err := r.effects.apply(ctx, id, policy, rule.Class); err != nil {
		r.logger.Warn("reconciler: failed to apply effect",
			"window_id", id,
			"class", w.Class,
			"state", policy.AccentState.String(),
			"error", err)
		// Remember permanent failures so they are not retried every pass.
		if !accent.IsUnsupported(err) && !errors.Is(err, platform.ErrStateUnsupported) {
			return
		}
	}

	r.mu.Lock()
	r.seen[id] = policy
	r.mu.Unlock()
	r.logger.Debug("reconciler: applied rule",
		"window_id", id,
		"class", w.Class,
		"state", policy.AccentState.String())
}

// matchRule returns the first rule matching w.
func matchRule(rules []config.Rule, w platform.Window) (config.Rule, bool) {
	for _, rule := range rules {
		if rule.Matches(w.Class, w.Title) {
			return rule, true
		}
	}
	return config.Rule{}, false
}
