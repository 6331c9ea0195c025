package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"github.com/openpim/catalog-bulk/internal/config"
)

// Client is the river backed Queue, it requires postgres.
type Client struct {
	client      *river.Client[pgx.Tx]
	reg         *registry
	maxAttempts int
}

var _ Queue = (*Client)(nil)

// NewPool opens the pgx pool used by river, sized for job processing plus LISTEN.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		cfg.Database.Hostname,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func NewClient(pool *pgxpool.Pool, cfg *config.Config) (*Client, error) {
	reg := &registry{}
	timeout := cfg.Queue.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &ImportWorker{reg: reg, timeout: timeout})
	river.AddWorker(workers, &ExportWorker{reg: reg, timeout: timeout})
	river.AddWorker(workers, &PurgeWorker{reg: reg})

	var periodic []*river.PeriodicJob
	if cfg.Export.PurgeInterval > 0 {
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(cfg.Export.PurgeInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return PurgeArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: max(cfg.Queue.Workers, 1)},
		},
		Workers:      workers,
		PeriodicJobs: periodic,

		FetchCooldown:     50 * time.Millisecond,
		FetchPollInterval: 100 * time.Millisecond,

		CancelledJobRetentionPeriod: 24 * time.Hour,
		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create river client: %w", err)
	}

	maxAttempts := cfg.Queue.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Client{client: riverClient, reg: reg, maxAttempts: maxAttempts}, nil
}

func (c *Client) Bind(h Handlers) {
	c.reg.bind(h)
}

func (c *Client) Start(ctx context.Context) error {
	return c.client.Start(ctx)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.client.Stop(ctx)
}

func (c *Client) EnqueueImport(ctx context.Context, args ImportArgs) (string, error) {
	return c.insert(ctx, args)
}

func (c *Client) EnqueueExport(ctx context.Context, args ExportArgs) (string, error) {
	return c.insert(ctx, args)
}

func (c *Client) insert(ctx context.Context, args river.JobArgs) (string, error) {
	result, err := c.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: c.maxAttempts,
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(result.Job.ID, 10), nil
}

func (c *Client) Remove(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	id, err := strconv.ParseInt(handle, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid queue handle %q: %w", handle, err)
	}
	row, err := c.client.JobCancel(ctx, id)
	if err != nil {
		if errors.Is(err, rivertype.ErrNotFound) {
			return nil
		}
		return err
	}
	// running tasks are only flagged, the worker observes the cancelled record
	if row.State != rivertype.JobStateCancelled {
		zap.S().Named("jobs").Debugw("task cancellation requested", "id", id, "state", row.State)
	}
	return nil
}
