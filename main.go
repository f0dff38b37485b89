// Command parking-lot-game starts the Parking Lot Puzzle server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config and session storage, logging, and optional
// ngrok tunneling for easy external access during development. Every flag can
// also be set through the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/parking-lot-game/api"
	"github.com/wricardo/parking-lot-game/game/config"
	"github.com/wricardo/parking-lot-game/game/service"
	"github.com/wricardo/parking-lot-game/game/session"
	"github.com/wricardo/parking-lot-game/transport/mcp"
	"github.com/wricardo/parking-lot-game/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Parking Lot Puzzle Server"
)

const (
	cleanupInterval = time.Hour
	sessionMaxAge   = 24 * time.Hour
	syncInterval    = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// services bundles everything the server modes share
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "parking-lot-game",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing puzzle configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "redis-addr", Usage: "persist sessions in redis at this address instead of files", Sources: cli.EnvVars("REDIS_ADDR")},
			&cli.StringFlag{Name: "redis-prefix", Value: session.DefaultRedisKeyPrefix, Usage: "redis key prefix for sessions", Sources: cli.EnvVars("REDIS_PREFIX")},
			&cli.DurationFlag{Name: "redis-ttl", Value: sessionMaxAge, Usage: "expiry of persisted sessions in redis, 0 keeps them", Sources: cli.EnvVars("REDIS_TTL")},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.BoolFlag{Name: "log-json", Usage: "log as JSON", Sources: cli.EnvVars("LOG_JSON")},
			&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  runServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run MCP stdio server, starting an internal HTTP API if none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "external API to reuse when reachable", Sources: cli.EnvVars("API_URL")},
				},
				Action: runStdioMCP,
			},
		},
		Action: runServer,
	}
}

// newLogger builds the process logger from --debug and --log-json
func newLogger(cmd *cli.Command) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if cmd.Bool("log-json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if cmd.Bool("debug") {
		log.SetLevel(logrus.DebugLevel)
		log.SetReportCaller(true)
	}
	logrus.SetOutput(log.Out)
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.Level)
	return log
}

// initializeServices wires config, session persistence, and the game service
func initializeServices(cmd *cli.Command, log logrus.FieldLogger) (*services, error) {
	configManager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	var persistence session.SessionPersistence
	if addr := cmd.String("redis-addr"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		rp, err := session.NewRedisPersistence(client, configManager, cmd.String("redis-prefix"), cmd.Duration("redis-ttl"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create redis persistence: %w", err)
		}
		log.WithField("addr", addr).Info("persisting sessions in redis")
		persistence = rp
	} else {
		fp, err := session.NewFilePersistence(cmd.String("sessions-dir"), configManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		log.WithField("dir", cmd.String("sessions-dir")).Info("persisting sessions on disk")
		persistence = fp
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("failed to load persisted sessions")
	}

	return &services{
		game:        service.NewGameServiceWithLogger(sessionManager, configManager, log),
		sessions:    sessionManager,
		persistence: persistence,
	}, nil
}

// cleanupExpired removes sessions idle for longer than maxAge
func cleanupExpired(manager *session.Manager, maxAge time.Duration, log logrus.FieldLogger) int {
	removed := manager.CleanupExpiredSessions(maxAge)
	if removed > 0 {
		log.WithField("removed", removed).Info("cleaned up expired sessions")
	}
	return removed
}

// syncWithStorage drops in-memory sessions whose persisted copy is gone
func syncWithStorage(manager *session.Manager, persistence session.SessionPersistence, log logrus.FieldLogger) int {
	if persistence == nil {
		return 0
	}
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.WithField("session", s.ID).Debug("pruned session from memory (storage copy deleted)")
		}
	}
	if pruned > 0 {
		log.WithField("pruned", pruned).Info("storage sync pruned orphaned sessions")
	}
	return pruned
}

// every runs fn each interval until ctx is done
func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

// mcpHandler serves single JSON-RPC messages for the MCP server over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newHandler mounts the REST API at the root and the MCP endpoint at /mcp
func newHandler(gameService service.GameService, hub *websocket.Hub, baseURL string, log logrus.FieldLogger) http.Handler {
	router := http.NewServeMux()
	router.Handle("/", api.NewServerWithLogger(gameService, hub, log))
	router.HandleFunc("/mcp", mcpHandler(mcp.NewClient(baseURL)))
	return router
}

// runServer starts the HTTP server with REST API, WebSocket hub, and /mcp endpoint.
// If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd)
	log.WithField("mode", "server").Infof("Starting %s v%s", AppName, Version)

	svc, err := initializeServices(cmd, log)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cmd.String("host"), fmt.Sprint(cmd.Int("port")))
	hub := websocket.NewHubWithLogger(log)
	handler := newHandler(svc.game, hub, "http://"+addr, log)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return every(ctx, cleanupInterval, func() { cleanupExpired(svc.sessions, sessionMaxAge, log) })
	})
	g.Go(func() error {
		return every(ctx, syncInterval, func() { syncWithStorage(svc.sessions, svc.persistence, log) })
	})

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"api":       fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("HTTP server shutdown error")
		}
		if err := svc.sessions.SaveAllSessions(); err != nil {
			log.WithError(err).Warn("failed to save sessions on shutdown")
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return runNgrok(ctx, handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), log)
		})
	}

	err = g.Wait()
	log.Info("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and never stop the local server.
func runNgrok(ctx context.Context, handler http.Handler, authToken, domain string, log logrus.FieldLogger) error {
	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.WithField("domain", domain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return nil
	}

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"api":       ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("🚀 Ngrok tunnel established: %s", ngrokURL)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
	return nil
}

// apiReachable reports whether an API server answers at baseURL
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// runStdioMCP runs an MCP stdio server. It reuses an external API when one
// answers at --api-url; otherwise it starts an internal HTTP API bound to a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(cmd)
	log.WithField("mode", "stdio-mcp").Infof("Starting %s v%s", AppName, Version)

	baseURL := cmd.String("api-url")
	if apiReachable(ctx, baseURL) {
		log.WithField("url", baseURL).Info("external API server found, using it for MCP")
		return mcp.NewClient(baseURL).ServeStdio()
	}

	log.Info("no external API server found, starting internal HTTP server")
	svc, err := initializeServices(cmd, log)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}
	baseURL = "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHubWithLogger(log)
	httpServer := &http.Server{Handler: api.NewServerWithLogger(svc.game, hub, log)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("internal HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.WithField("url", baseURL).Info("MCP stdio server ready (using internal HTTP server)")
	serveErr := mcp.NewClient(baseURL).ServeStdio()

	cancel()
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("internal HTTP server stopped with error")
	}
	if err := svc.sessions.SaveAllSessions(); err != nil {
		log.WithError(err).Warn("failed to save sessions on shutdown")
	}
	return serveErr
}

// main loads .env, then runs the selected mode until interrupted
func main() {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logrus.WithError(err).Warn("error loading .env file")
		}
	} else {
		logrus.Info("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
