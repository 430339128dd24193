package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/api-gateway/internal/domain/routing"
)

// Admission is the gateway's decision about one request: the route it
// resolved to and, on protected routes, the verified caller.
type Admission struct {
	Route    *routing.Route
	Identity *credential.Identity
}

// Authenticated reports whether a credential was verified for the request.
func (a Admission) Authenticated() bool {
	return a.Identity != nil && a.Identity.UserID != ""
}

type admissionKey struct{}

// WithAdmission returns ctx carrying a.
func WithAdmission(ctx context.Context, a Admission) context.Context {
	return context.WithValue(ctx, admissionKey{}, a)
}

// AdmissionFromContext returns the admission recorded by Admit.
func AdmissionFromContext(ctx context.Context) (Admission, bool) {
	a, ok := ctx.Value(admissionKey{}).(Admission)
	return a, ok && a.Route != nil
}

// CredentialVerifier validates bearer access credentials.
type CredentialVerifier interface {
	Verify(raw string) (credential.Identity, error)
}

// AuthFailureFunc observes a rejected credential.
type AuthFailureFunc func(reason string)

// Admit resolves the route for the request and, when the route is protected,
// requires a valid bearer credential. A client-supplied trusted user header is
// always dropped; only a verified credential sets it downstream.
func Admit(table *routing.Table, verifier CredentialVerifier, log zerolog.Logger, onFailure AuthFailureFunc) gin.HandlerFunc {
	log = log.With().Str("component", "admission").Logger()
	fail := func(c *gin.Context, reason, message string) {
		if onFailure != nil {
			onFailure(reason)
		}
		log.Warn().
			Str("reason", reason).
			Str("path", c.Request.URL.Path).
			Str("request_id", platformerrors.RequestIDFromContext(c.Request.Context())).
			Msg("credential rejected")
		platformerrors.WriteUnauthorized(c, message)
	}

	return func(c *gin.Context) {
		c.Request.Header.Del(credential.TrustedUserHeader)

		route, ok := table.Match(c.Request.URL.Path)
		if !ok {
			platformerrors.WriteStatus(c, http.StatusNotFound, platformerrors.ErrorTypeNotFound, "Route not found")
			return
		}
		admission := Admission{Route: route}

		if route.Protected {
			raw, ok := credential.BearerToken(c.GetHeader("Authorization"))
			if !ok {
				fail(c, "missing", "Authentication required")
				return
			}
			identity, err := verifier.Verify(raw)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, credential.ErrExpired) {
					reason = "expired"
				}
				fail(c, reason, "Invalid token")
				return
			}
			admission.Identity = &identity
		}

		c.Request = c.Request.WithContext(WithAdmission(c.Request.Context(), admission))
		c.Next()
	}
}

// OnlySensitive runs limit for requests that hit a sensitive endpoint of the
// admitted route and passes every other request straight through.
func OnlySensitive(limit gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		admission, ok := AdmissionFromContext(c.Request.Context())
		if !ok || !admission.Route.IsSensitive(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}
		limit(c)
	}
}

// SensitiveKey keys the sensitive limiter on route and client address.
func SensitiveKey(clientKey func(*gin.Context) string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		route := "unknown"
		if admission, ok := AdmissionFromContext(c.Request.Context()); ok {
			route = admission.Route.Name
		}
		return route + ":" + clientKey(c)
	}
}
