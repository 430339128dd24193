package platformerrors_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
)

func TestNewError_CarriesRequestID(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")
	err := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "post not found", nil, "code-1")

	assert.Equal(t, "req-1", err.GetRequestID())
	assert.Equal(t, "code-1", err.GetUUID())
	assert.Equal(t, "[domain][NOT_FOUND][code-1] post not found", err.Error())
}

func TestAsError_PreservesType(t *testing.T) {
	ctx := context.Background()
	inner := platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeForbidden, "not owner", nil, "code-2")

	wrapped := platformerrors.AsError(ctx, platformerrors.LayerHandler, fmt.Errorf("delete: %w", inner), "delete failed")

	assert.Equal(t, platformerrors.ErrorTypeForbidden, wrapped.Type)
	assert.Equal(t, "code-2", wrapped.UUID)
	assert.True(t, errors.Is(wrapped, inner))
}

func TestAsError_PlainErrorIsInternal(t *testing.T) {
	wrapped := platformerrors.AsError(context.Background(), platformerrors.LayerDomain, io.EOF, "read failed")
	assert.Equal(t, platformerrors.ErrorTypeInternal, wrapped.Type)
	assert.Nil(t, platformerrors.AsError(context.Background(), platformerrors.LayerDomain, nil, "noop"))
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := []struct {
		errorType platformerrors.ErrorType
		status    int
	}{
		{platformerrors.ErrorTypeValidation, http.StatusBadRequest},
		{platformerrors.ErrorTypeUnauthorized, http.StatusUnauthorized},
		{platformerrors.ErrorTypeForbidden, http.StatusForbidden},
		{platformerrors.ErrorTypeNotFound, http.StatusNotFound},
		{platformerrors.ErrorTypeRateLimited, http.StatusTooManyRequests},
		{platformerrors.ErrorTypePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{platformerrors.ErrorTypeExternal, http.StatusBadGateway},
		{platformerrors.ErrorTypeDatabaseError, http.StatusInternalServerError},
		{platformerrors.ErrorType("UNKNOWN"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.status, platformerrors.ErrorTypeToHTTPStatus(tt.errorType))
		})
	}
}

func TestIsErrorType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "dup", nil, ""))
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
	assert.False(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.False(t, platformerrors.IsErrorType(nil, platformerrors.ErrorTypeConflict))
}

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{
			name:       "platform error",
			err:        platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "Post not found", nil, "c-1"),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found_error",
			wantMsg:    "Post not found",
		},
		{
			name:       "plain error hides details",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			platformerrors.WriteError(c, tt.err, zerolog.Nop())

			require.Equal(t, tt.wantStatus, w.Code)
			var body platformerrors.HTTPErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.True(t, c.IsAborted())
		})
	}
}
