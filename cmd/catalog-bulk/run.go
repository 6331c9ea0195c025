package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/openpim/catalog-bulk/internal/api_server"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bulk catalog api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, done, err := setup()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}
		defer done()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		if !skipMigrations {
			if err := migrate(ctx, cfg, db, s); err != nil {
				return err
			}
		}

		blob, err := storage.New(cfg)
		if err != nil {
			return fmt.Errorf("initializing file storage: %w", err)
		}
		if e, ok := blob.(storage.BucketEnsurer); ok {
			if err := e.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("creating bucket: %w", err)
			}
		}
		zap.S().Infow("file storage ready", "type", blob.Type())

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, s, blob, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("Error running server", "error", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			metricsServer, err := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener, s)
			if err != nil {
				zap.S().Fatalw("creating metrics server", "error", err)
			}
			if err := metricsServer.Run(ctx); err != nil {
				zap.S().Fatalw("Error running metrics server", "error", err)
			}
		}()

		<-ctx.Done()

		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
