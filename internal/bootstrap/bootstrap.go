// Package bootstrap provides dependency initialization for the Minacast server.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/wilweb04/Veo-Minacast/internal/config"
	"github.com/wilweb04/Veo-Minacast/internal/credentials"
	"github.com/wilweb04/Veo-Minacast/internal/generate"
	"github.com/wilweb04/Veo-Minacast/internal/job"
	"github.com/wilweb04/Veo-Minacast/internal/server"
	"github.com/wilweb04/Veo-Minacast/internal/storage"
	"github.com/wilweb04/Veo-Minacast/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Handlers *server.Handlers
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// A key saved through the UI wins over the environment key, and a
	// save takes effect on the next provider call without a restart.
	creds, err := credentials.NewStore(cfg.DataDir, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("create credential store: %w", err)
	}

	veoClient := veo.NewClient(veo.WithKeySource(creds.Resolve))

	service := generate.NewService(veoClient, cfg.VeoModel, logger,
		generate.WithPollInterval(cfg.PollInterval),
		generate.WithProgressInterval(cfg.ProgressInterval),
	)

	repo := job.NewMemoryRepository()
	hub := server.NewHub(logger)
	runner := server.NewRunner(service, repo, store, hub, logger)
	handlers := server.NewHandlers(runner, repo, creds, store, hub, logger)

	return &Dependencies{
		Handlers: handlers,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}
