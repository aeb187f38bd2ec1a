package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/1broseidon/glasspane/internal/accent"
	"github.com/1broseidon/glasspane/internal/config"
	"github.com/1broseidon/glasspane/internal/daemon"
	"github.com/1broseidon/glasspane/internal/platform"
	"github.com/1broseidon/glasspane/internal/runtimepath"
)

// requestTimeout bounds how long a request may wait for the dispatcher.
const requestTimeout = 5 * time.Second

// EffectService applies and reverts effects on behalf of IPC clients.
type EffectService interface {
	Apply(ctx context.Context, window uint32, policy accent.AccentPolicy) error
	Disable(ctx context.Context, window uint32) error
	Applied() []daemon.AppliedEffect
	Supported() bool
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgPath      string
	cfgMu        sync.RWMutex
	effects      EffectService
	backend      platform.Backend
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
	inFlight     sync.WaitGroup
}

// NewServer creates a new IPC server. backend may be nil when no window
// enumeration is available; requests that need it then fail.
func NewServer(cfg *config.Config, effects EffectService, backend platform.Backend, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		effects:    effects,
		backend:    backend,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		s.shutdownMu.Lock()
		if s.shuttingDown {
			s.shutdownMu.Unlock()
			conn.Close()
			return
		}
		s.inFlight.Add(1)
		s.shutdownMu.Unlock()

		go func() {
			defer s.inFlight.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(requestTimeout))

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandApplyEffect:
		return s.handleApplyEffect(req.Payload)
	case CommandDisableEffect:
		return s.handleDisableEffect(req.Payload)
	case CommandListWindows:
		return s.handleListWindows()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	// Load new config
	newCfg, err := s.loadConfig()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	// Update config atomically
	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	cfg := s.GetConfig()

	applied := s.effects.Applied()
	infos := make([]AppliedEffect, 0, len(applied))
	for _, a := range applied {
		infos = append(infos, AppliedEffect{
			Window: a.Window,
			State:  a.State.String(),
			Color:  accent.FormatColor(a.Color),
			Rule:   a.Rule,
		})
	}

	display := cfg.Display
	if display == "" {
		display = os.Getenv("DISPLAY")
	}

	status := StatusData{
		DaemonRunning: true,
		Backend:       platform.ResolveNativeKind(cfg.Backend, runtime.GOOS, display),
		Supported:     s.effects.Supported(),
		RuleCount:     len(cfg.Rules),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Applied:       infos,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleApplyEffect(payload json.RawMessage) *Response {
	var req ApplyEffectPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid apply payload: %v", err))
	}
	if req.State == "" {
		return NewErrorResponse("state is required")
	}

	policy, err := s.policyFor(req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	window, err := s.resolveWindow(req.Window)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.effects.Apply(ctx, window, policy); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to apply effect: %v", err))
	}

	log.Printf("IPC: Applied %s to window 0x%x", policy.AccentState, window)

	resp, _ := NewOKResponse(EffectResult{
		Window: window,
		State:  policy.AccentState.String(),
		Color:  accent.FormatColor(policy.GradientColor),
	})
	return resp
}

func (s *Server) handleDisableEffect(payload json.RawMessage) *Response {
	var req DisableEffectPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid disable payload: %v", err))
		}
	}

	window, err := s.resolveWindow(req.Window)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.effects.Disable(ctx, window); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to disable effect: %v", err))
	}

	resp, _ := NewOKResponse(EffectResult{
		Window: window,
		State:  accent.AccentDisabled.String(),
	})
	return resp
}

func (s *Server) handleListWindows() *Response {
	if s.backend == nil {
		return NewErrorResponse("window listing is not available on this platform")
	}

	windows, err := s.backend.ListWindows()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
	}

	effects := make(map[uint32]string)
	for _, a := range s.effects.Applied() {
		effects[a.Window] = a.State.String()
	}

	data := WindowsData{Windows: make([]WindowInfo, 0, len(windows))}
	for _, w := range windows {
		info := NewWindowInfo(w)
		if effect, ok := effects[uint32(w.ID)]; ok {
			info.Effect = effect
		}
		data.Windows = append(data.Windows, info)
	}
	if active, err := s.backend.ActiveWindow(); err == nil {
		data.Active = uint32(active)
	}

	resp, _ := NewOKResponse(data)
	return resp
}

// policyFor builds the accent policy for an apply request.
func (s *Server) policyFor(req ApplyEffectPayload) (accent.AccentPolicy, error) {
	cfg := s.GetConfig()
	rule := config.Rule{
		Effect: req.State,
		Color:  req.Color,
		Flags:  req.Flags,
	}
	return rule.Policy(cfg.DefaultColorValue())
}

// resolveWindow maps window 0 to the active window.
func (s *Server) resolveWindow(window uint32) (uint32, error) {
	if window != 0 {
		return window, nil
	}
	if s.backend == nil {
		return 0, fmt.Errorf("window is required on this platform")
	}
	active, err := s.backend.ActiveWindow()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve active window: %w", err)
	}
	if active == 0 {
		return 0, fmt.Errorf("no active window")
	}
	return uint32(active), nil
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop closes the listener and waits for requests already being handled to
// finish. It is safe to call more than once.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.inFlight.Wait()
	os.Remove(s.socketPath)
}

// SetConfigPath makes RELOAD read path instead of the default location.
func (s *Server) SetConfigPath(path string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfgPath = path
}

func (s *Server) loadConfig() (*config.Config, error) {
	s.cfgMu.RLock()
	path := s.cfgPath
	s.cfgMu.RUnlock()

	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig updates the config (thread-safe)
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}
