package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/daemon"
	"github.com/1broseidon/glasspane/internal/effectlog"
	"github.com/1broseidon/glasspane/internal/hotkeys"
	"github.com/1broseidon/glasspane/internal/ipc"
	"github.com/1broseidon/glasspane/internal/platform"
	"github.com/1broseidon/glasspane/internal/runtimepath"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "apply":
		os.Exit(runApply(os.Args[2:]))
	case "disable":
		os.Exit(runDisable(os.Args[2:]))
	case "states":
		os.Exit(runStates(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: glasspane <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the glasspane daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Ask the daemon to reload its config")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  apply [window]      Apply an accent effect to a window")
	fmt.Fprintln(w, "  disable [window]    Remove the accent effect from a window")
	fmt.Fprintln(w, "  states              List accent states and flags")
	fmt.Fprintln(w, "  windows             List top-level windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config init         Write a starter config file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'glasspane <command> --help' for command-specific options.")
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("daemon_running: %v\n", status.DaemonRunning)
	fmt.Printf("backend:        %s\n", status.Backend)
	fmt.Printf("supported:      %v\n", status.Supported)
	fmt.Printf("rule_count:     %d\n", status.RuleCount)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("applied:        %d\n", len(status.Applied))
	for _, a := range status.Applied {
		line := fmt.Sprintf("  0x%08x  %-20s %s", a.Window, a.State, a.Color)
		if a.Rule != "" {
			line += "  rule=" + a.Rule
		}
		fmt.Println(line)
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Reload ~/.config/glasspane/config.yaml in the running daemon.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

// openEffectLog builds the effect action log from config. Failures are
// logged and yield a nil logger, which discards entries.
func openEffectLog(cfg *config.Config) *effectlog.Logger {
	logCfg := cfg.GetLoggingConfig()
	if !logCfg.Enabled {
		return nil
	}
	logger, err := effectlog.NewLogger(effectlog.LogConfig{
		Enabled:   logCfg.Enabled,
		Level:     effectlog.ParseLogLevel(logCfg.Level),
		FilePath:  logCfg.File,
		MaxSizeMB: logCfg.MaxSizeMB,
		MaxFiles:  logCfg.MaxFiles,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize effect log: %v", err)
		return nil
	}
	return logger
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/glasspane/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the effect daemon in the foreground. It serves IPC requests,")
		fmt.Fprintln(os.Stderr, "applies configured rules and reverts every effect it applied on exit.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	log.Printf("Configuration loaded (backend: %s, rules: %d)", cfg.Backend, len(cfg.Rules))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	eventLog := openEffectLog(cfg)
	defer eventLog.Close()

	native, release, err := platform.OpenNative(cfg.Backend, cfg.Display, platform.X11Options{TintOpacity: cfg.TintOpacity})
	if err != nil {
		log.Printf("Warning: effects unavailable: %v", err)
	}
	defer release()

	controller := accent.NewControllerWithNative(native)
	dispatcher := daemon.NewDispatcher()
	defer dispatcher.Close()

	statePath, err := runtimepath.StatePath()
	if err != nil {
		log.Printf("Warning: effect state will not be persisted: %v", err)
		statePath = ""
	}
	effects := daemon.NewEffects(controller, dispatcher, eventLog, statePath)
	if err := effects.Restore(); err != nil {
		log.Printf("Warning: failed to restore effect state: %v", err)
	}

	backend, err := platform.NewBackend(cfg.Display)
	if err != nil {
		if !errors.Is(err, platform.ErrUnsupported) {
			log.Printf("Warning: window listing unavailable: %v", err)
		}
		backend = nil
	} else {
		defer backend.Close()
	}

	reloadChan := make(chan struct{}, 1)

	ipcServer, err := ipc.NewServer(cfg, effects, backend, reloadChan)
	if err != nil {
		log.Printf("Failed to create IPC server: %v", err)
		return 1
	}
	ipcServer.SetConfigPath(*path)
	if err := ipcServer.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
		return 1
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reconciler *daemon.RuleReconciler
	if backend != nil && cfg.ReconcileInterval > 0 {
		reconciler = daemon.NewRuleReconciler(daemon.ReconcilerConfig{
			Interval: time.Duration(cfg.ReconcileInterval) * time.Second,
			Logger:   logger,
			EventLog: eventLog,
		}, cfg, backend, effects)

		// Apply rules right away instead of waiting a full interval.
		reconciler.ReconcileNow(ctx)
		go reconciler.Run(ctx)
	}

	var hotkeyHandler *hotkeys.Handler
	if backend != nil && cfg.ToggleHotkey != "" {
		h, err := hotkeys.NewHandler(cfg.Display)
		if err != nil {
			log.Printf("Warning: toggle hotkey unavailable: %v", err)
		} else if err := h.RegisterFunc(cfg.ToggleHotkey, func() {
			toggleActive(ipcServer.GetConfig(), backend, effects)
		}); err != nil {
			log.Printf("Warning: Failed to register toggle hotkey: %v", err)
			h.Close()
		} else {
			hotkeyHandler = h
			go hotkeyHandler.Run()
			defer hotkeyHandler.Close()
		}
	}

	log.Printf("glasspane daemon started (effects supported: %v)", controller.Supported())

	applyConfig := func(newCfg *config.Config) {
		if reconciler != nil {
			reconciler.UpdateConfig(newCfg)
			reconciler.ReconcileNow(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading config...")
				newCfg, err := loadConfig(*path)
				if err != nil {
					log.Printf("Config reload failed: %v", err)
					continue
				}
				ipcServer.UpdateConfig(newCfg)
				applyConfig(newCfg)
				log.Println("Config reloaded successfully")

			default:
				log.Println("Shutting down glasspane daemon...")
				// Nothing may apply an effect once DisableAll starts.
				ipcServer.Stop()
				cancel()
				if reconciler != nil {
					<-reconciler.Done()
				}
				if hotkeyHandler != nil {
					hotkeyHandler.Close()
				}
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				effects.DisableAll(shutdownCtx)
				shutdownCancel()
				return 0
			}

		case <-reloadChan:
			// Config was reloaded via IPC, update components
			applyConfig(ipcServer.GetConfig())
		}
	}
}

// toggleActive flips the toggle effect on the focused window.
func toggleActive(cfg *config.Config, backend platform.Backend, effects *daemon.Effects) {
	policy, err := cfg.TogglePolicy()
	if err != nil {
		log.Printf("Toggle hotkey: %v", err)
		return
	}
	active, err := backend.ActiveWindow()
	if err != nil || active == 0 {
		log.Printf("Toggle hotkey: no active window (%v)", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	on, err := effects.Toggle(ctx, uint32(active), policy)
	if err != nil {
		log.Printf("Toggle hotkey: window 0x%x: %v", uint32(active), err)
		return
	}
	log.Printf("Toggle hotkey: window 0x%x effect on=%v", uint32(active), on)
}

// loadConfig loads path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}
