package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/pokerroom/internal/auth"
	"github.com/lox/pokerroom/internal/config"
	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/gameid"
	"github.com/lox/pokerroom/internal/handhistory"
	"github.com/lox/pokerroom/internal/lobby"
	"github.com/lox/pokerroom/internal/session"
	"github.com/lox/pokerroom/internal/transport"
	"github.com/lox/pokerroom/internal/wallet"
)

// CLI is the room server's command line, grounded on cmd/server/main.go's
// kong.CLI shape and trimmed of every bot-spawning flag: this server has
// no built-in AI opponents, so there is nothing here to bootstrap a
// subprocess for.
type CLI struct {
	Config  string `kong:"default='roomserver.hcl',help='Path to the HCL server/stake-ladder config file'"`
	Debug   bool   `kong:"help='Enable debug logging'"`
	AuthURL string `kong:"name='auth-url',help='Identity Resolver HTTP endpoint; empty uses the no-op validator'"`
	AuthKey string `kong:"name='auth-key',help='Admin secret sent to the Identity Resolver'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("roomserver"),
		kong.Description("Multi-variant online poker room server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	if err := cfg.Validate(); err != nil {
		kctx.FatalIfErrorf(err)
	}
	if cfg.Server.LogLevel != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil && !cli.Debug {
			logger = logger.Level(parsed)
		}
	}

	engine := game.NewTableEngine()
	ids := gameid.NewTableIDGenerator()
	lb := lobby.New(engine, ids)
	if err := lb.ProvisionStakeLadder(cfg.Stakes); err != nil {
		kctx.FatalIfErrorf(err)
	}

	validator := game.NewValidator(quartz.NewReal())

	var auther auth.Validator
	if cli.AuthURL != "" {
		auther = auth.NewHTTPValidator(cli.AuthURL, cli.AuthKey)
	} else {
		logger.Warn().Msg("no auth-url configured, every session resolves as unauthenticated")
		auther = auth.NewNoopValidator()
	}

	coord := session.New(engine, lb, validator, auther, wallet.NewNoop(), handhistory.NewStore(), quartz.NewReal())

	mux := http.NewServeMux()
	registerAdminRoutes(mux, lb, time.Now())
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error().Err(err).Msg("websocket upgrade error")
			return
		}
		token := r.URL.Query().Get("token")
		sessionID := gameid.Generate()
		conn, err := transport.NewConn(sessionID, ws, coord, token, logger)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("session rejected")
			_ = ws.Close()
			return
		}
		conn.Run()
	})

	httpSrv := &http.Server{
		Addr:    cfg.Address(),
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Address()).Int("stakes", len(cfg.Stakes)).Msg("room server starting")
		serverErr <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			kctx.FatalIfErrorf(err)
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		if err := coord.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("table actor drain failed")
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server exited with error")
		} else {
			logger.Info().Msg("server shutdown complete")
		}
	}
}
