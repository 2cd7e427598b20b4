package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qlab/tickscan/internal/api"
	"github.com/qlab/tickscan/internal/api/handlers"
	"github.com/qlab/tickscan/internal/store"
	"github.com/qlab/tickscan/pkg/config"
	"github.com/qlab/tickscan/pkg/database"
	"github.com/qlab/tickscan/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ranking API server",
	Long: `Starts the REST API server over persisted ranking snapshots.

Endpoints:
  GET /health                - Health check
  GET /api/ranking/latest    - Most recent snapshot
  GET /api/ranking/{date}    - Snapshot for a trading day (YYYY-MM-DD)
  GET /api/presets           - Available scoring presets

Example:
  go run ./cmd/tickscan serve
  go run ./cmd/tickscan serve --port 8080`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default from PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	log := logger.New(cfg)

	var rankings *store.Rankings
	if cfg.Database.Enabled() {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		rankings = store.NewRankings(db.Pool)
		log.Info("Connected to database")
	} else {
		log.Warn("Database disabled, ranking endpoints will return 503")
	}

	rankingHandler := handlers.NewRankingHandler(rankings, log)
	router := api.NewRouter(rankingHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
