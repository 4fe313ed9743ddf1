package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tobsdb/dynatable/internal/config"
	"github.com/tobsdb/dynatable/internal/conn"
	"github.com/tobsdb/dynatable/internal/engine"
	"github.com/tobsdb/dynatable/internal/storage"
	"github.com/tobsdb/dynatable/internal/storage/memory"
	"github.com/tobsdb/dynatable/internal/storage/sqlite"
	"github.com/tobsdb/dynatable/pkg"
)

func newServeCmd() *cobra.Command {
	var config_path string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config_path)
			if err != nil {
				return err
			}
			if err := cfg.ApplyChanged(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&config_path, "config", "c", os.Getenv(config.ENV_PREFIX+"CONFIG"), "path to a YAML config file")
	config.Default().BindFlags(cmd.Flags())
	return cmd
}

func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLite.Path, cfg.SQLite.ReadMaxOpen)
	case config.BackendMemory:
		ws, err := memory.NewWriteSettings(cfg.Memory.SnapshotPath, cfg.Memory.SnapshotPath == "", cfg.Memory.WriteIntervalMs)
		if err != nil {
			return nil, err
		}
		return memory.New(ws)
	}
	return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := pkg.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	pkg.SetLogLevel(level)

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	e, err := engine.Open(ctx, backend)
	if err != nil {
		backend.Close()
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			pkg.ErrorLog("closing storage", err)
		}
	}()

	pkg.InfoLog("Using", cfg.Backend, "backend with", len(e.ListTables()), "tables")
	server := conn.NewServer(e, conn.ServerSettings{
		Addr:           cfg.ListenAddr,
		Version:        version,
		RateLimit:      conn.RateLimitSettings{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	return server.Listen(ctx)
}
