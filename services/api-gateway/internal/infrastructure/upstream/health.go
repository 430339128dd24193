// Package upstream probes the services behind the gateway.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// HealthProber checks every upstream's liveness endpoint.
type HealthProber struct {
	client    *resty.Client
	upstreams map[string]string
	log       zerolog.Logger
}

// NewHealthProber probes each base URL in upstreams at /healthz, bounding
// every probe by timeout.
func NewHealthProber(upstreams map[string]string, timeout time.Duration, log zerolog.Logger) *HealthProber {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "murmur-gateway-probe/1.0")
	return &HealthProber{
		client:    client,
		upstreams: upstreams,
		log:       log.With().Str("component", "upstream-probe").Logger(),
	}
}

// Check probes all upstreams concurrently and reports every one that is down.
func (p *HealthProber) Check(ctx context.Context) error {
	names := make([]string, 0, len(p.upstreams))
	for name := range p.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			errs[i] = p.probe(ctx, name, p.upstreams[name])
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		p.log.Warn().Err(err).Msg("upstream not ready")
		return err
	}
	return nil
}

func (p *HealthProber) probe(ctx context.Context, name, baseURL string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		Get(baseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: status %d", name, resp.StatusCode())
	}
	return nil
}

// Close releases the probe client's idle connections.
func (p *HealthProber) Close() error {
	return p.client.Close()
}
