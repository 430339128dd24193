package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/middlewares"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver/requests"
	"github.com/murmurhq/murmur-server/services/post-api/internal/interfaces/httpserver/responses"
)

// PostHandler exposes post CRUD under /api/posts.
type PostHandler struct {
	service *post.Service
	log     zerolog.Logger
}

func NewPostHandler(service *post.Service, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		service: service,
		log:     log.With().Str("component", "post-handler").Logger(),
	}
}

// CreatePost stores a post for the calling user.
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, _ := middlewares.CallerFromContext(c.Request.Context())

	var req requests.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, bindingMessage(err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.ToDomain(userID))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusCreated, responses.BuildCreatePostResponse(created.ID))
}

// ListPosts returns one page of posts, newest first.
func (h *PostHandler) ListPosts(c *gin.Context) {
	var query requests.ListPostsQuery
	_ = c.ShouldBindQuery(&query)

	page, err := h.service.List(c.Request.Context(), post.Paging{
		Page: atoiOrZero(query.Page),
		Size: atoiOrZero(query.Limit),
	})
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetPost returns a single post.
func (h *PostHandler) GetPost(c *gin.Context) {
	found, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, found)
}

// DeletePost removes a post owned by the caller.
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, _ := middlewares.CallerFromContext(c.Request.Context())

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildDeletePostResponse())
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

// bindingMessage trims gin's validator output down to the failing rule.
func bindingMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "Error:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("Error:"):])
	}
	return "Invalid request body"
}
