package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/logger"
)

const defaultTokenSpec = "@daily"

// Cleaner coordinates background maintenance tasks such as purging auth token
// rows whose refresh tokens have expired.
type Cleaner struct {
	tokens *iauth.TokenService
	cron   *cron.Cron
	log    *zap.Logger

	tokenSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil token service
// results in the cleanup job being skipped.
func NewCleaner(tokens *iauth.TokenService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:        tokens,
		tokenSchedule: defaultTokenSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.tokens == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
		ctx := context.Background()
		if removed, err := c.tokens.CleanupExpired(ctx); err != nil {
			c.log.Warn("token cleanup failed", zap.Error(err))
		} else if removed > 0 {
			c.log.Info("token cleanup completed", zap.Int64("removed", removed))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes the cleanup routine immediately. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.tokens != nil {
		if _, err := c.tokens.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
