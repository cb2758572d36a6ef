// Command chatroomd is the standalone host process described by
// spec.md §6: it loads configuration, boots a host.HTTPServer, loads
// the chat room plugin into it, and serves until signaled to stop.
//
// Grounded on dragonfox-mediasync-server/main.go: same godotenv +
// slog + signal.Notify + graceful-shutdown shape, generalized from a
// hub/protocol/websocket trio wired directly in main to a single
// plugin.Load call against the host.Server abstraction.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dragonfox-chatroom/config"
	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/host"
	"dragonfox-chatroom/plugin"
	"dragonfox-chatroom/timekeeper"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	diag := diagnostics.New(logger)
	clock := timekeeper.NewReal()
	server := host.New(clock, diag)

	p, err := plugin.Load(server, cfg)
	if err != nil {
		slog.Error("failed to load plugin", "error", err)
		os.Exit(1)
	}
	defer p.Unload()

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/stats", statsHandler(p))

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.ListenAddr, "config", cfg.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func statsHandler(p *plugin.Plugin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, claimed := p.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"sessions": sessions, "claimedNicknames": claimed})
	}
}
