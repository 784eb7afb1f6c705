package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/policy"
	"github.com/jaakkos/planforge/internal/repository"
	"github.com/jaakkos/planforge/internal/tools/planning"
	"github.com/jaakkos/planforge/internal/workflow"
)

// runServe wires the repository, service, workflow engine and MCP server
// together and blocks until the stdio client disconnects or a signal arrives.
func runServe() error {
	tmpLogger := log.New(os.Stderr, "[planforge] ", log.LstdFlags|log.Lshortfile)
	cfg := loadConfig(tmpLogger)
	pol := policy.New(cfg)

	logger := setupLogger(pol.LogFile())
	logger.Println("Starting MCP Planforge server...")
	logger.Printf("Log file: %s", pol.LogFile())
	logger.Printf("State file: %s", pol.StateFile())

	repo, err := repository.NewPlanRepository(pol.StateFile())
	if err != nil {
		logger.Printf("Plan repository: %v", err)
		return err
	}

	svc, err := app.NewPlanService(repo, pol, logger)
	if err != nil {
		logger.Printf("Plan service: %v", err)
		return err
	}
	engine := workflow.NewEngine(svc, logger)

	// Session registry for multi-client tracking
	registry := app.NewSessionRegistry()

	// Session store for push notifications (holds actual ClientSession objects)
	sessions := newSessionStore()

	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			logger.Printf("Calling tool: %s", message.Params.Name)
		}
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		sid := session.SessionID()
		registry.RemoveSession(sid)
		sessions.remove(sid)
		logger.Printf("Client session unregistered: %s", sid)
	})

	mcpServer := server.NewMCPServer(
		"mcp-planforge",
		Version,
		server.WithInstructions(planning.InstructionsText()),
		server.WithToolHandlerMiddleware(planning.PiggybackMiddleware(svc, registry)),
		server.WithHooks(hooks),
		server.WithResourceCapabilities(false, true), // subscribe=false, listChanged=true
	)

	planning.Register(mcpServer, svc, engine, logger, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ignore SIGHUP so the server keeps running when daemonized (nohup, launchd, etc.)
	signal.Ignore(syscall.SIGHUP)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Push function for the notifier: fan out to all connected sessions.
	pushFunc := func(method string, params any) error {
		for _, session := range sessions.all() {
			if !session.Initialized() {
				continue
			}
			notification := mcp.JSONRPCNotification{
				JSONRPC: "2.0",
				Notification: mcp.Notification{
					Method: method,
					Params: mcp.NotificationParams{AdditionalFields: map[string]any{"params": params}},
				},
			}
			select {
			case session.NotificationChannel() <- notification:
			default:
				logger.Printf("Notifier: push to %s dropped (channel full)", session.SessionID())
			}
		}
		return nil
	}

	notifier := app.NewNotifier(pol.SignalFilePath(), svc, registry.HasSessions, pushFunc, logger)
	svc.SetNotifier(notifier)
	go notifier.Start(ctx)

	// HTTP server in background for additional clients
	httpShutdown := startHTTPServer(ctx, mcpServer, pol.HTTPPort(), logger, registry, sessions, hooks)

	// Stdio server in foreground for the driving agent
	logger.Println("Stdio ready (driver connection)")
	stdioSrv := server.NewStdioServer(mcpServer)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Printf("Stdio server stopped: %v", err)
	}

	cancel()
	httpShutdown()
	notifier.Stop()

	if c, ok := repo.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logger.Printf("Warning: close plan repository: %v", err)
		}
	}

	logger.Println("Server stopped")
	return nil
}

// startHTTPServer starts the HTTP server in the background for additional
// clients. Returns a shutdown function. Uses net.Listen to support port 0
// (auto-assign) for running multiple instances.
func startHTTPServer(ctx context.Context, mcpServer *server.MCPServer, port int, logger *log.Logger, registry *app.SessionRegistry, sessions *sessionStore, hooks *server.Hooks) func() {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Fatalf("HTTP listen: %v", err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://localhost:%d", actualPort)

	logger.Printf("HTTP server on :%d", actualPort)
	logger.Printf("  Clients connect at: %s/mcp", baseURL)

	// Session lifecycle hook for HTTP clients
	hooks.AddBeforeInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest) {
		if session := server.ClientSessionFromContext(ctx); session != nil {
			sessions.set(session.SessionID(), session)
			registry.Register(session.SessionID())
			logger.Printf("Client session registered: %s", session.SessionID())
		}
		if message != nil {
			ci := message.Params.ClientInfo
			logger.Printf("Client: %s %s, Protocol: %s", ci.Name, ci.Version, message.Params.ProtocolVersion)
		}
	})

	sseSrv := server.NewSSEServer(mcpServer, server.WithBaseURL(baseURL))
	streamSrv := server.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/sse", sseSrv)
	mux.Handle("/sse/", sseSrv)
	mux.Handle("/message", sseSrv)
	mux.Handle("/mcp", streamSrv)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","port":%d,"sessions":%d}`, actualPort, registry.SessionCount())
	})

	httpServer := &http.Server{Handler: mux}

	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}
}

// sessionStore holds active ClientSession objects for push notifications.
type sessionStore struct {
	mu   sync.RWMutex
	data map[string]server.ClientSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[string]server.ClientSession)}
}

func (ss *sessionStore) set(id string, s server.ClientSession) {
	ss.mu.Lock()
	ss.data[id] = s
	ss.mu.Unlock()
}

func (ss *sessionStore) all() []server.ClientSession {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	out := make([]server.ClientSession, 0, len(ss.data))
	for _, s := range ss.data {
		out = append(out, s)
	}
	return out
}

func (ss *sessionStore) remove(id string) {
	ss.mu.Lock()
	delete(ss.data, id)
	ss.mu.Unlock()
}
