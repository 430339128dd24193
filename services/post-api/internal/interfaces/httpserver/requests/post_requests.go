package requests

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/murmurhq/murmur-server/pkg/idgen"
	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
)

// CreatePostRequest is the body of POST /api/posts/create-post.
type CreatePostRequest struct {
	Content  string   `json:"content" binding:"required,min=3,max=5000"`
	MediaIDs []string `json:"mediaIds" binding:"omitempty,max=10,dive,mediaid"`
}

// ToDomain converts request to domain input
func (r *CreatePostRequest) ToDomain(userID string) post.CreateInput {
	return post.CreateInput{
		UserID:   userID,
		Content:  r.Content,
		MediaIDs: r.MediaIDs,
	}
}

// ListPostsQuery binds ?page=&limit=. Unparseable values are left at zero and
// normalized by the domain.
type ListPostsQuery struct {
	Page  string `form:"page"`
	Limit string `form:"limit"`
}

var registerOnce sync.Once

// RegisterValidations installs the custom tags used by request structs on
// gin's validator. Safe to call more than once.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("mediaid", func(fl validator.FieldLevel) bool {
			return idgen.IsValid(idgen.PrefixMedia, fl.Field().String())
		})
	})
}
