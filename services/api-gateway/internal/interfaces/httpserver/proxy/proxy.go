// Package proxy forwards admitted requests to their upstream service.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	gatewaymw "github.com/murmurhq/murmur-server/services/api-gateway/internal/interfaces/httpserver/middlewares"
)

// ErrorFunc observes an upstream transport failure.
type ErrorFunc func(upstream string)

// Dispatcher holds one reverse proxy per upstream.
type Dispatcher struct {
	proxies map[string]*httputil.ReverseProxy
	timeout time.Duration
	onError ErrorFunc
	log     zerolog.Logger
}

type exchangeKey struct{}

// exchange carries per-request state between Handle and the proxy callbacks.
type exchange struct {
	// owned lists response headers the gateway already set. Upstream copies are
	// dropped so clients never see them twice.
	owned []string
	err   error
}

// NewDispatcher builds proxies for every upstream. timeout bounds dialing,
// waiting for response headers and the request as a whole.
func NewDispatcher(upstreams map[string]string, timeout time.Duration, log zerolog.Logger, onError ErrorFunc) (*Dispatcher, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	log = log.With().Str("component", "dispatcher").Logger()

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
	}

	d := &Dispatcher{
		proxies: make(map[string]*httputil.ReverseProxy, len(upstreams)),
		timeout: timeout,
		onError: onError,
		log:     log,
	}
	for name, raw := range upstreams {
		target, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("upstream %s: %w", name, err)
		}
		d.proxies[name] = d.newReverseProxy(target, transport)
	}
	return d, nil
}

func (d *Dispatcher) newReverseProxy(target *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Transport: transport,
		Rewrite: func(pr *httputil.ProxyRequest) {
			ctx := pr.In.Context()
			admission, _ := gatewaymw.AdmissionFromContext(ctx)

			pr.Out.URL.Path = admission.Route.UpstreamPath(pr.In.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del(credential.TrustedUserHeader)
			if admission.Authenticated() {
				pr.Out.Header.Set(credential.TrustedUserHeader, admission.Identity.UserID)
			}
			if requestID := platformerrors.RequestIDFromContext(ctx); requestID != "" {
				pr.Out.Header.Set(middlewares.RequestIDHeader, requestID)
			}
			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(pr.Out.Header))
		},
		ModifyResponse: func(res *http.Response) error {
			if ex, ok := res.Request.Context().Value(exchangeKey{}).(*exchange); ok {
				for _, name := range ex.owned {
					res.Header.Del(name)
				}
			}
			return nil
		},
		ErrorHandler: func(_ http.ResponseWriter, r *http.Request, err error) {
			if ex, ok := r.Context().Value(exchangeKey{}).(*exchange); ok {
				ex.err = err
			}
		},
	}
}

// Handle forwards the admitted request. Upstream responses, errors included,
// are relayed as they are; only transport failures produce a gateway error.
func (d *Dispatcher) Handle(c *gin.Context) {
	admission, ok := gatewaymw.AdmissionFromContext(c.Request.Context())
	if !ok {
		platformerrors.WriteStatus(c, http.StatusNotFound, platformerrors.ErrorTypeNotFound, "Route not found")
		return
	}
	upstream := admission.Route.Upstream
	rp, ok := d.proxies[upstream]
	if !ok {
		d.log.Error().Str("upstream", upstream).Str("route", admission.Route.Name).Msg("route references unknown upstream")
		platformerrors.WriteInternalError(c, "Internal server error")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), d.timeout)
	defer cancel()
	ex := &exchange{}
	for name := range c.Writer.Header() {
		ex.owned = append(ex.owned, name)
	}
	ctx = context.WithValue(ctx, exchangeKey{}, ex)

	rp.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
	if ex.err == nil {
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(ex.err, &tooLarge) {
		platformerrors.WriteStatus(c, http.StatusRequestEntityTooLarge, platformerrors.ErrorTypePayloadTooLarge, "Request body too large")
		return
	}
	if errors.Is(c.Request.Context().Err(), context.Canceled) {
		d.log.Debug().Str("upstream", upstream).Msg("client went away before upstream answered")
		c.Abort()
		return
	}

	if d.onError != nil {
		d.onError(upstream)
	}
	d.log.Error().
		Err(ex.err).
		Str("upstream", upstream).
		Str("route", admission.Route.Name).
		Str("request_id", platformerrors.RequestIDFromContext(c.Request.Context())).
		Msg("upstream unavailable")
	platformerrors.WriteStatus(c, http.StatusBadGateway, platformerrors.ErrorTypeExternal, "Upstream service unavailable")
}
