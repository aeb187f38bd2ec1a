package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/ipc"
)

const (
	ServerName    = "glasspane"
	ServerVersion = "0.1.0"
)

// EffectClient is the daemon surface the MCP tools forward to. ipc.Client
// implements it.
type EffectClient interface {
	ApplyEffect(req ipc.ApplyEffectPayload) (*ipc.EffectResult, error)
	DisableEffect(window uint32) (*ipc.EffectResult, error)
	ListWindows() (*ipc.WindowsData, error)
}

var _ EffectClient = (*ipc.Client)(nil)

// Server is the MCP server exposing window effect tools.
type Server struct {
	mcpServer *mcpsdk.Server
	client    EffectClient
}

// NewServer creates an MCP server that forwards tool calls to client.
func NewServer(client EffectClient) (*Server, error) {
	if client == nil {
		return nil, fmt.Errorf("effect client is required")
	}

	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_effect",
		Description: "Apply a compositor accent effect (blur, acrylic, gradient tint) to a window through the running glasspane daemon. Omit window to target the active window. Returns the window id and the state that was applied.",
	}, s.handleApplyEffect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "disable_effect",
		Description: "Remove any accent effect from a window, restoring the default backdrop. Omit window to target the active window. Safe to call on windows without an effect.",
	}, s.handleDisableEffect)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level windows known to the daemon with their class, title and current effect. Use the returned id with apply_effect or disable_effect.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_accent_states",
		Description: "List accepted accent state names with their numeric codes, plus the accepted flag names.",
	}, s.handleListAccentStates)
}

func (s *Server) handleApplyEffect(_ context.Context, _ *mcpsdk.CallToolRequest, args ApplyEffectInput) (*mcpsdk.CallToolResult, EffectOutput, error) {
	state, err := accent.ParseAccentState(args.State)
	if err != nil {
		return nil, EffectOutput{}, err
	}

	res, err := s.client.ApplyEffect(ipc.ApplyEffectPayload{
		Window: args.Window,
		State:  state.String(),
		Color:  args.Color,
		Flags:  args.Flags,
	})
	if err != nil {
		return nil, EffectOutput{}, err
	}

	return nil, EffectOutput{
		Window: res.Window,
		State:  res.State,
		Color:  res.Color,
	}, nil
}

func (s *Server) handleDisableEffect(_ context.Context, _ *mcpsdk.CallToolRequest, args DisableEffectInput) (*mcpsdk.CallToolResult, EffectOutput, error) {
	res, err := s.client.DisableEffect(args.Window)
	if err != nil {
		return nil, EffectOutput{}, err
	}
	return nil, EffectOutput{Window: res.Window, State: res.State}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.client.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}

	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(data.Windows))}
	for _, w := range data.Windows {
		if args.Class != "" && !strings.EqualFold(w.Class, args.Class) {
			continue
		}
		out.Windows = append(out.Windows, WindowInfo{
			ID:     w.ID,
			Class:  w.Class,
			Title:  w.Title,
			Effect: w.Effect,
			Active: w.ID == data.Active && data.Active != 0,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListAccentStates(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListAccentStatesInput) (*mcpsdk.CallToolResult, ListAccentStatesOutput, error) {
	states := accent.States()
	out := ListAccentStatesOutput{
		States: make([]AccentStateInfo, 0, len(states)),
		Flags:  accent.FlagNames(),
	}
	for _, st := range states {
		out.States = append(out.States, AccentStateInfo{Name: st.String(), Code: uint32(st)})
	}
	return nil, out, nil
}
