package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/ipc"
	"github.com/1broseidon/glasspane/internal/platform"
)

// parseWindowID accepts a decimal or 0x-prefixed window id. An empty string
// means the active window and yields 0.
func parseWindowID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return n, nil
}

// splitFlags turns "a,b" into ["a", "b"], dropping empty entries.
func splitFlags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runApply(args []string) int {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	state := fs.String("state", "acrylic", "Accent state name or code (see 'glasspane states')")
	color := fs.String("color", "", "Tint color 0xAABBGGRR (default: config default_color)")
	flags := fs.String("flags", "", "Comma-separated accent flags")
	direct := fs.Bool("direct", false, "Call the native entry point in-process instead of via the daemon")
	path := fs.String("path", "", "Config file path for --direct (default: ~/.config/glasspane/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane apply [--state S] [--color C] [--flags F] [--direct] [window]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Apply an accent effect. Without a window id the active window is used.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "apply takes at most one window id")
		fs.Usage()
		return 2
	}

	window, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if _, err := accent.ParseAccentState(*state); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *direct {
		return applyDirect(*path, window, *state, *color, splitFlags(*flags))
	}

	if window > 0xFFFFFFFF {
		fmt.Fprintf(os.Stderr, "window id 0x%x is out of range for the daemon\n", window)
		return 2
	}
	res, err := ipc.NewClient().ApplyEffect(ipc.ApplyEffectPayload{
		Window: uint32(window),
		State:  *state,
		Color:  *color,
		Flags:  splitFlags(*flags),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("applied %s (%s) to window 0x%x\n", res.State, res.Color, res.Window)
	return 0
}

func runDisable(args []string) int {
	fs := flag.NewFlagSet("disable", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	direct := fs.Bool("direct", false, "Call the native entry point in-process instead of via the daemon")
	path := fs.String("path", "", "Config file path for --direct (default: ~/.config/glasspane/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane disable [--direct] [window]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Remove any accent effect. Without a window id the active window is used.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "disable takes at most one window id")
		fs.Usage()
		return 2
	}

	window, err := parseWindowID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *direct {
		return disableDirect(*path, window)
	}

	if window > 0xFFFFFFFF {
		fmt.Fprintf(os.Stderr, "window id 0x%x is out of range for the daemon\n", window)
		return 2
	}
	res, err := ipc.NewClient().DisableEffect(uint32(window))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("disabled effect on window 0x%x\n", res.Window)
	return 0
}

// directController opens the configured native backend in-process.
func directController(path string) (*accent.Controller, *config.Config, func(), error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, nil, err
	}
	native, release, err := platform.OpenNative(cfg.Backend, cfg.Display, platform.X11Options{TintOpacity: cfg.TintOpacity})
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	return accent.NewControllerWithNative(native), cfg, release, nil
}

// resolveDirectWindow maps 0 to the active window via the window backend.
func resolveDirectWindow(cfg *config.Config, window uint64) (accent.WindowHandle, error) {
	if window != 0 {
		return accent.WindowHandle(window), nil
	}
	backend, err := platform.NewBackend(cfg.Display)
	if err != nil {
		return 0, fmt.Errorf("a window id is required: %w", err)
	}
	defer backend.Close()

	active, err := backend.ActiveWindow()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve active window: %w", err)
	}
	return accent.WindowHandle(active), nil
}

func applyDirect(path string, window uint64, state, color string, flags []string) int {
	controller, cfg, release, err := directController(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer release()

	hwnd, err := resolveDirectWindow(cfg, window)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	policy, err := config.Rule{Effect: state, Color: color, Flags: flags}.Policy(cfg.DefaultColorValue())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// The plain acrylic request maps onto the boolean entry point.
	if policy == accent.BlurPolicy(policy.GradientColor) {
		if !controller.ApplyBlurEffect(hwnd, policy.GradientColor) {
			fmt.Fprintf(os.Stderr, "failed to apply acrylic blur to window 0x%x\n", uintptr(hwnd))
			return 1
		}
	} else if err := controller.Apply(hwnd, policy); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("applied %s (%s) to window 0x%x\n", policy.AccentState, accent.FormatColor(policy.GradientColor), uintptr(hwnd))
	return 0
}

func disableDirect(path string, window uint64) int {
	controller, cfg, release, err := directController(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer release()

	hwnd, err := resolveDirectWindow(cfg, window)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	controller.DisableEffect(hwnd)
	fmt.Printf("disabled effect on window 0x%x\n", uintptr(hwnd))
	return 0
}

func runStates(args []string) int {
	fs := flag.NewFlagSet("states", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "states takes no arguments")
		return 2
	}
	return printStates(os.Stdout, *asJSON)
}

func printStates(w io.Writer, asJSON bool) int {
	type stateInfo struct {
		Name string `json:"name"`
		Code uint32 `json:"code"`
	}
	states := accent.States()

	if asJSON {
		out := struct {
			States []stateInfo `json:"states"`
			Flags  []string    `json:"flags"`
		}{Flags: accent.FlagNames()}
		for _, st := range states {
			out.States = append(out.States, stateInfo{Name: st.String(), Code: uint32(st)})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Fprintln(w, "states:")
	for _, st := range states {
		fmt.Fprintf(w, "  %d  %s\n", uint32(st), st)
	}
	fmt.Fprintln(w, "flags:")
	for _, name := range accent.FlagNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return 0
}

func runWindows(args []string) int {
	fs := flag.NewFlagSet("windows", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Output JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: glasspane windows [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List top-level windows. Uses the daemon when running, otherwise")
		fmt.Fprintln(os.Stderr, "queries the display directly.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "windows takes no arguments")
		return 2
	}

	data, err := ipc.NewClient().ListWindows()
	if err != nil {
		data, err = listWindowsDirect()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	width := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	printWindows(os.Stdout, data, width)
	return 0
}

func listWindowsDirect() (*ipc.WindowsData, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	backend, err := platform.NewBackend(cfg.Display)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	windows, err := backend.ListWindows()
	if err != nil {
		return nil, err
	}
	data := &ipc.WindowsData{Windows: make([]ipc.WindowInfo, 0, len(windows))}
	for _, w := range windows {
		data.Windows = append(data.Windows, ipc.NewWindowInfo(w))
	}
	if active, err := backend.ActiveWindow(); err == nil {
		data.Active = uint32(active)
	}
	return data, nil
}

// printWindows renders the window table. A positive width truncates titles
// so each row fits the terminal.
func printWindows(w io.Writer, data *ipc.WindowsData, width int) {
	const fixed = 48 // marker, id, class and effect columns

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tCLASS\tEFFECT\tTITLE")
	for _, win := range data.Windows {
		marker := " "
		if win.ID == data.Active && data.Active != 0 {
			marker = "*"
		}
		effect := win.Effect
		if effect == "" {
			effect = "-"
		}
		title := win.Title
		if width > fixed {
			title = truncate(title, width-fixed)
		}
		fmt.Fprintf(tw, "%s\t0x%08x\t%s\t%s\t%s\n", marker, win.ID, win.Class, effect, title)
	}
	tw.Flush()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
