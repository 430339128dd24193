package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/metrics"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/requests"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/interfaces/httpserver/responses"
)

// AuthHandler exposes registration, login and token endpoints.
type AuthHandler struct {
	service   *identity.Service
	authority *credential.Authority
	log       zerolog.Logger
}

func NewAuthHandler(service *identity.Service, authority *credential.Authority, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		authority: authority,
		log:       log.With().Str("component", "auth-handler").Logger(),
	}
}

// Register creates an account and returns its first credential pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req requests.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, bindingMessage(err))
		return
	}

	_, pair, err := h.service.Register(c.Request.Context(), req.ToDomain())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusCreated, responses.BuildRegisterResponse(pair))
}

// Login exchanges email and password for a credential pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req requests.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, bindingMessage(err))
		return
	}

	user, pair, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildLoginResponse(user.ID, pair))
}

// RefreshToken rotates a refresh token. All auth failures share one 401 response.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, ok := h.bindRefreshToken(c)
	if !ok {
		return
	}

	pair, err := h.authority.Rotate(c.Request.Context(), token)
	if err != nil {
		metrics.RecordRotation(rotationResult(err))
		platformerrors.WriteError(c, err, h.log)
		return
	}

	metrics.RecordRotation("success")
	c.JSON(http.StatusOK, responses.BuildTokenPairResponse(pair))
}

// Logout revokes a refresh token. Unknown tokens still succeed.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := h.bindRefreshToken(c)
	if !ok {
		return
	}

	if _, err := h.authority.Revoke(c.Request.Context(), token); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) bindRefreshToken(c *gin.Context) (string, bool) {
	var req requests.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		platformerrors.WriteValidationError(c, "Refresh token not provided")
		return "", false
	}
	return req.RefreshToken, true
}

func rotationResult(err error) string {
	switch {
	case errors.Is(err, credential.ErrAlreadyUsed):
		return "reused"
	case errors.Is(err, credential.ErrExpired):
		return "expired"
	case errors.Is(err, credential.ErrNotFound), errors.Is(err, credential.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func bindingMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "Error:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("Error:"):])
	}
	return "Invalid request body"
}
