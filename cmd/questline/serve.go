package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chainlabs/questline/internal/auth"
	"github.com/chainlabs/questline/internal/cms"
	"github.com/chainlabs/questline/internal/config"
	"github.com/chainlabs/questline/internal/db"
	"github.com/chainlabs/questline/internal/llm"
	"github.com/chainlabs/questline/internal/logging"
	"github.com/chainlabs/questline/internal/progress"
	"github.com/chainlabs/questline/internal/retry"
	"github.com/chainlabs/questline/internal/server"
	"github.com/chainlabs/questline/internal/transcript"
	"github.com/chainlabs/questline/internal/turn"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Questline API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runServe(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gdb, err := db.Connect(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	manager, err := auth.NewManager(gdb, cfg.Auth.Secret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, logger)
	if err != nil {
		return err
	}
	transcripts, err := transcript.NewStore(gdb, logger)
	if err != nil {
		return err
	}
	library := cms.NewLibrary()
	reconciler, err := progress.NewReconciler(gdb, library, logger)
	if err != nil {
		return err
	}
	phases, err := turn.NewPhaseStore(gdb)
	if err != nil {
		return err
	}

	client := llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	invoker := llm.NewInvoker(client, nil, retry.DefaultConfig(), logger)

	seq, err := turn.NewSequencer(transcripts, invoker, reconciler, phases, library, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		DB:             gdb,
		Auth:           manager,
		Sequencer:      seq,
		Progress:       reconciler,
		Phases:         phases,
		CMS:            library,
		Logger:         logger,
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IdleTimeout:    cfg.Server.IdleTimeout,
		SweepInterval:  cfg.Server.SweepInterval,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting questline",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("db_driver", cfg.DB.Driver))
	return srv.Start(ctx)
}
