// Command server runs the dungeon game server: the REST and MCP surfaces,
// the websocket event stream and, optionally, an MCP stdio session.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/agent-dungeon/internal/auth"
	"github.com/yourusername/agent-dungeon/internal/catalog"
	"github.com/yourusername/agent-dungeon/internal/config"
	"github.com/yourusername/agent-dungeon/internal/engine"
	"github.com/yourusername/agent-dungeon/internal/logging"
	"github.com/yourusername/agent-dungeon/internal/mcp"
	"github.com/yourusername/agent-dungeon/internal/notify"
	"github.com/yourusername/agent-dungeon/internal/service"
	"github.com/yourusername/agent-dungeon/internal/storage"
	"github.com/yourusername/agent-dungeon/internal/storage/boltstore"
	"github.com/yourusername/agent-dungeon/internal/storage/sqlstore"
	"github.com/yourusername/agent-dungeon/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "agent-dungeon", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
	}

	games, err := openGameStore(cfg)
	if err != nil {
		return err
	}
	defer games.Close()

	characters, err := boltstore.Open(cfg.CharacterDBPath)
	if err != nil {
		return fmt.Errorf("open character store: %w", err)
	}
	defer characters.Close()

	engCfg := engine.DefaultConfig()
	engCfg.SetupExchanges = cfg.SetupExchanges
	engCfg.Freeform = cfg.Freeform
	eng := engine.New(cat, engCfg, logger.Named("engine"))

	hub := notify.NewHub(logger.Named("notify"), func(origin string) bool {
		return originAllowed(cfg.CORSOrigins, origin)
	})
	svc := service.New(eng, games, service.Options{
		Characters:  characters,
		Broadcaster: hub,
		Logger:      logger.Named("service"),
	})
	tools := mcp.NewServer(svc, eng.Commands(), logger.Named("mcp"))
	signer := auth.NewSigner(cfg.AuthSecret, cfg.AuthIssuerKey, auth.DefaultTTL)
	if signer == nil {
		logger.Warn("AUTH_SECRET is not set; requests are not authenticated")
	} else {
		tools.RequireAuth(signer.Verify)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(svc, tools, hub, signer, cfg.CORSOrigins, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting dungeon server",
			zap.String("addr", httpServer.Addr),
			zap.Bool("postgres", cfg.UsePostgres()),
			zap.String("mcp_transport", cfg.MCPTransport),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.MCPTransport == config.TransportStdio {
		g.Go(func() error {
			err := tools.RunStdio(gctx)
			// The client closing stdin ends the process.
			stop()
			return err
		})
	}
	return g.Wait()
}

func openGameStore(cfg config.Config) (storage.Store, error) {
	if cfg.UsePostgres() {
		store, err := sqlstore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	}
	store, err := sqlstore.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return store, nil
}
