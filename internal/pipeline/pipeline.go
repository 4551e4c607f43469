package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dmaliar/cashback-pipeline/internal/lake"
	"github.com/dmaliar/cashback-pipeline/internal/logger"
	"github.com/dmaliar/cashback-pipeline/internal/metrics"
	"github.com/dmaliar/cashback-pipeline/internal/models"
	"github.com/dmaliar/cashback-pipeline/internal/staging"
	"github.com/dmaliar/cashback-pipeline/internal/warehouse"
)

// Pipeline runs one fetch-transform-load batch end to end.
type Pipeline struct {
	Source     Source
	FetchLimit int

	Stager  *staging.Stager
	Lake    *lake.Writer
	Loader  *warehouse.Loader
	Runs    *warehouse.RunRepo
	Metrics metrics.Recorder
	Logger  logger.Logger

	// Catalog entry the crawled dataset is registered under.
	Database string
	Table    string
}

// Run executes one batch and records its outcome in pipeline_runs. The
// returned run carries the final counts; err is non-nil only for fatal
// failures (a fetch falling back to snapshots is not one).
func (p *Pipeline) Run(ctx context.Context) (models.PipelineRun, error) {
	started := time.Now()

	run, err := p.Runs.StartRun(ctx)
	if err != nil {
		return run, fmt.Errorf("start run: %w", err)
	}
	p.Logger.Info("Run started", "run_id", run.ID)

	err = p.execute(ctx, &run)

	switch err {
	case nil:
		run.Status = models.RunStatusSuccess
	default:
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		p.Logger.Error("Run failed", "run_id", run.ID, "error", err)
	}

	saved, finishErr := p.Runs.FinishRun(ctx, run)
	if finishErr != nil {
		p.Logger.Error("Failed to record run outcome", "run_id", run.ID, "error", finishErr)
	} else {
		run = saved
	}

	p.Metrics.ObserveRun(run, time.Since(started))
	if pushErr := p.Metrics.Push(ctx); pushErr != nil {
		p.Logger.Warn("Failed to push metrics", "error", pushErr)
	}

	if err == nil {
		p.Logger.Info("Run finished",
			"run_id", run.ID,
			"rows_published", run.RowsPublished,
			"rows_loaded", run.RowsLoaded,
			"used_snapshot", run.UsedSnapshot,
		)
	}

	return run, err
}

func (p *Pipeline) execute(ctx context.Context, run *models.PipelineRun) error {
	rawTxns, rawRewards, err := p.fetch(ctx, run)
	if err != nil {
		return err
	}
	run.TransactionsFetched = len(rawTxns)
	run.RewardsFetched = len(rawRewards)

	transactions := NormalizeTransactions(rawTxns)
	rewards, dropped := NormalizeRewards(rawRewards)
	run.RowsDropped = dropped

	joined := Join(rewards, transactions)
	run.RowsPublished = len(joined)

	if len(joined) == 0 {
		p.Logger.Warn("No joined rows, skipping publish and load")
		return nil
	}

	for _, m := range MonthlyReport(joined) {
		p.Logger.Info("Monthly summary",
			"month", m.Month,
			"plu_sum", m.PluSum,
			"price_mean", m.PriceMean,
			"price_max", m.PriceMax,
			"price_min", m.PriceMin,
		)
	}

	if err := p.Lake.Publish(ctx, joined); err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}

	schema, err := p.Lake.Crawl(ctx, p.Database, p.Table)
	if err != nil {
		return fmt.Errorf("crawl dataset: %w", err)
	}

	loaded, err := p.Loader.Load(ctx, schema, joined)
	if err != nil {
		return fmt.Errorf("load warehouse: %w", err)
	}
	run.RowsLoaded = int(loaded)

	return nil
}

// fetch pulls both raw sequences from the source and stages them. When the
// source is unreachable the previous run's staged snapshots are used instead,
// so a flaky upstream degrades the run rather than failing it.
func (p *Pipeline) fetch(ctx context.Context, run *models.PipelineRun) ([]models.Record, []models.Record, error) {
	rawTxns, txnErr := p.Source.Transactions(ctx, p.FetchLimit)
	if txnErr == nil {
		if err := p.Stager.StageTransactions(ctx, rawTxns); err != nil {
			p.Logger.Warn("Failed to stage transactions", "error", err)
		}
	} else {
		p.Logger.Warn("Transactions fetch failed, falling back to snapshot", "error", txnErr)
		var err error
		rawTxns, err = p.Stager.SnapshotTransactions(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("transactions: fetch failed (%w) and no snapshot: %w", txnErr, err)
		}
		run.UsedSnapshot = true
	}

	rawRewards, rewardErr := p.Source.Rewards(ctx)
	if rewardErr == nil {
		if err := p.Stager.StageRewards(ctx, rawRewards); err != nil {
			p.Logger.Warn("Failed to stage rewards", "error", err)
		}
	} else {
		p.Logger.Warn("Rewards fetch failed, falling back to snapshot", "error", rewardErr)
		var err error
		rawRewards, err = p.Stager.SnapshotRewards(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("rewards: fetch failed (%w) and no snapshot: %w", rewardErr, err)
		}
		run.UsedSnapshot = true
	}

	return rawTxns, rawRewards, nil
}
