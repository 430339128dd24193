package crontab

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpired(context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestRun_PurgesOnStartAndStopsWithContext(t *testing.T) {
	purger := &countingPurger{}
	c := NewCrontab(&config.Config{TokenPurgeCron: "0 * * * *"}, purger, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return purger.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("crontab did not stop")
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	c := NewCrontab(&config.Config{TokenPurgeCron: "not a cron"}, purger, zerolog.Nop())

	err := c.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), purger.calls.Load())
}
