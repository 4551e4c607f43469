package main

import (
	"context"
	"fmt"

	"github.com/dmaliar/cashback-pipeline/internal/lake"
	"github.com/dmaliar/cashback-pipeline/internal/logger"
	"github.com/dmaliar/cashback-pipeline/internal/metrics"
	"github.com/dmaliar/cashback-pipeline/internal/models"
	"github.com/dmaliar/cashback-pipeline/internal/pipeline"
	"github.com/dmaliar/cashback-pipeline/internal/plutus"
	"github.com/dmaliar/cashback-pipeline/internal/staging"
	"github.com/dmaliar/cashback-pipeline/internal/warehouse"
)

type PipelineApp struct {
	Pipeline *pipeline.Pipeline
	Logger   logger.Logger

	close func()
}

func NewPipelineApp(ctx context.Context, c *Config) (*PipelineApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the warehouse and run migrations
	pool, err := warehouse.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Staged snapshots live next to the parquet output locally, or in S3
	var store staging.BlobStore = staging.NewLocalStore(c.DataDir)
	if c.S3Bucket != "" {
		store, err = staging.NewS3Store(c.S3Bucket, c.S3Region)
		if err != nil {
			return nil, fmt.Errorf("error while creating S3 store. Err: %w", err)
		}
	}

	client := plutus.NewClient(plutus.Config{
		Email:    c.APIEmail,
		Password: c.APIPassword,
		ClientID: c.APIClientID,
		SiteKey:  c.APISiteKey,
	}, c.APITOTPSecret, plutus.NoCaptcha, log)

	var recorder metrics.Recorder = metrics.NewNoOpRecorder()
	if c.PushgatewayURL != "" {
		recorder = metrics.NewPusher(c.PushgatewayURL, c.MetricsJob)
	}

	p := &pipeline.Pipeline{
		Source:     client,
		FetchLimit: c.FetchLimit,
		Stager:     &staging.Stager{Store: store},
		Lake:       lake.NewWriter(c.DataDir),
		Loader:     &warehouse.Loader{DB: pool, Table: c.TargetTable, Key: c.KeyColumn},
		Runs:       &warehouse.RunRepo{DB: pool},
		Metrics:    recorder,
		Logger:     log,
		Database:   c.CatalogDatabase,
		Table:      c.CatalogTable,
	}

	return &PipelineApp{
		Pipeline: p,
		Logger:   log,
		close:    pool.Close,
	}, nil
}

// Run executes one batch and releases the app's resources.
func (a *PipelineApp) Run(ctx context.Context) (models.PipelineRun, error) {
	defer a.close()

	return a.Pipeline.Run(ctx)
}
