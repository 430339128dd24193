package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/pkg/telemetry"
	"github.com/murmurhq/murmur-server/pkg/testhelpers"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/refreshtoken"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/repository/user"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/handlers"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/responses"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, ready httpserver.ReadinessCheck) (http.Handler, *credential.Authority) {
	t.Helper()

	cfg := &config.Config{
		ServiceName:     "identity-api",
		Environment:     "test",
		CORSOrigins:     []string{"*"},
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		JWTIssuer:       "murmur-identity",
		AccessTokenTTL:  10 * time.Minute,
		RefreshTokenTTL: 48 * time.Hour,
	}
	users := user.NewInMemoryRepository()
	authority, err := credential.NewAuthority(cfg, refreshtoken.NewInMemoryRepository(), users, zerolog.Nop())
	require.NoError(t, err)

	svc := identity.NewService(users, authority, telemetry.NewSanitizer(telemetry.PIILevelHashed, "test"), zerolog.Nop()).
		WithPasswordParams(identity.PasswordParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	srv := httpserver.New(cfg, zerolog.Nop(), handlers.NewProvider(svc, authority, zerolog.Nop()), ready)
	return srv.Handler(), authority
}

func TestAliceScenario(t *testing.T) {
	h, authority := newServer(t, nil)

	w := testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice01", "email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := testhelpers.Decode[responses.RegisterResponse](t, w)
	assert.True(t, registered.Success)
	assert.Equal(t, "User registered successfully", registered.Message)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := testhelpers.Decode[responses.LoginResponse](t, w)
	assert.Contains(t, login.UserID, "usr_")

	id, err := authority.Verify(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, login.UserID, id.UserID)

	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": login.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := testhelpers.Decode[responses.TokenPairResponse](t, w)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// replaying the consumed token fails
	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": login.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	errBody := testhelpers.Decode[platformerrors.HTTPErrorResponse](t, w)
	assert.Equal(t, "Invalid or expired refresh token", errBody.Message)
	assert.Equal(t, "unauthorized_error", errBody.Error.Type)
	assert.NotEmpty(t, errBody.Error.RequestID)

	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": rotated.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, w.Body.String())

	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/logout", map[string]string{"refreshToken": rotated.RefreshToken}, nil)
	assert.Equal(t, http.StatusOK, w.Code, "logout is idempotent")

	w = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": rotated.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConcurrentRefreshExactlyOneSucceeds(t *testing.T) {
	h, _ := newServer(t, nil)

	w := testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice01", "email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	token := testhelpers.Decode[responses.RegisterResponse](t, w).RefreshToken

	const racers = 8
	codes := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/refresh-token", map[string]string{"refreshToken": token}, nil).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, code := range codes {
		if code == http.StatusOK {
			ok++
			continue
		}
		assert.Equal(t, http.StatusUnauthorized, code)
	}
	assert.Equal(t, 1, ok)
}

func TestAuthErrors(t *testing.T) {
	h, _ := newServer(t, nil)

	w := testhelpers.DoJSON(t, h, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice01", "email": "alice@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name    string
		path    string
		body    any
		status  int
		message string
	}{
		{"duplicate", "/api/auth/register", map[string]string{"username": "alice02", "email": "alice@example.com", "password": "secret123"}, http.StatusBadRequest, "User already exists"},
		{"unknown email", "/api/auth/login", map[string]string{"email": "bob@example.com", "password": "secret123"}, http.StatusBadRequest, "Invalid email"},
		{"wrong password", "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "nope-nope"}, http.StatusBadRequest, "Invalid password"},
		{"missing refresh", "/api/auth/refresh-token", map[string]string{}, http.StatusBadRequest, "Refresh token not provided"},
		{"garbage refresh", "/api/auth/refresh-token", map[string]string{"refreshToken": "garbage"}, http.StatusUnauthorized, "Invalid or expired refresh token"},
		{"missing logout token", "/api/auth/logout", "{}", http.StatusBadRequest, "Refresh token not provided"},
		{"malformed body", "/api/auth/login", "{", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testhelpers.DoJSON(t, h, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := testhelpers.Decode[platformerrors.HTTPErrorResponse](t, w)
			assert.False(t, body.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	h, _ := newServer(t, func(context.Context) error { return errors.New("db down") })

	w := testhelpers.DoJSON(t, h, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testhelpers.DoJSON(t, h, http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
