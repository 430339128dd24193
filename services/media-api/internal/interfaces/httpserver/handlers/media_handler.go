package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/requests"
	"github.com/murmurhq/murmur-server/services/media-api/internal/interfaces/httpserver/responses"
)

// multipartOverhead is the allowance for boundaries and part headers on top of the file itself.
const multipartOverhead = 64 * 1024

// MediaHandler exposes media endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

// Upload stores the multipart field "file" for the calling user.
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, _ := middlewares.CallerFromContext(c.Request.Context())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxMediaBytes+multipartOverhead)

	var form requests.UploadForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return
		}
		platformerrors.WriteValidationError(c, "No file found in request. Please add a file and try again!")
		return
	}
	if form.File.Size > h.cfg.MaxMediaBytes {
		h.tooLarge(c)
		return
	}

	file, err := form.File.Open()
	if err != nil {
		platformerrors.WriteValidationError(c, "Error while uploading file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxMediaBytes+1))
	if err != nil {
		platformerrors.WriteValidationError(c, "Error while uploading file")
		return
	}

	h.log.Info().Str("user_id", userID).Str("filename", form.File.Filename).Int64("size", form.File.Size).Msg("starting media upload")
	obj, err := h.service.Upload(c.Request.Context(), domain.UploadInput{
		UserID:       userID,
		OriginalName: form.File.Filename,
		Data:         data,
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusCreated, responses.BuildUploadResponse(obj))
}

// List returns every media record.
func (h *MediaHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildListResponse(items))
}

func (h *MediaHandler) tooLarge(c *gin.Context) {
	platformerrors.WriteStatus(c, http.StatusRequestEntityTooLarge, platformerrors.ErrorTypePayloadTooLarge,
		fmt.Sprintf("File exceeds the maximum size of %d bytes", h.cfg.MaxMediaBytes))
}
