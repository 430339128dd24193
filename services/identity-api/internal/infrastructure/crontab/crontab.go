package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/metrics"
)

// PurgeJobTimeout bounds one purge run.
const PurgeJobTimeout = time.Minute

// TokenPurger removes expired rotation tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Crontab struct {
	ctab   *crontab.Crontab
	purger TokenPurger
	expr   string
	log    zerolog.Logger
}

func NewCrontab(cfg *config.Config, purger TokenPurger, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:   crontab.New(),
		purger: purger,
		expr:   cfg.TokenPurgeCron,
		log:    log.With().Str("component", "crontab").Logger(),
	}
}

// Run purges once at startup, schedules the purge job and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	defer c.ctab.Shutdown()

	c.purge(ctx)

	if c.expr == "" {
		c.log.Warn().Msg("refresh token purge disabled")
		<-ctx.Done()
		return nil
	}

	if err := c.ctab.AddJob(c.expr, func() {
		jobCtx, cancel := context.WithTimeout(ctx, PurgeJobTimeout)
		defer cancel()
		c.purge(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add token purge job")
	}
	c.log.Info().Str("schedule", c.expr).Msg("refresh token purge scheduled")

	<-ctx.Done()
	return nil
}

func (c *Crontab) purge(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to purge expired refresh tokens")
		return
	}
	metrics.RecordPurge(n)
	if n > 0 {
		c.log.Info().Int64("removed", n).Msg("purged expired refresh tokens")
	}
}
