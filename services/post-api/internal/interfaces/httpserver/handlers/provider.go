package handlers

import (
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
)

// Provider wires HTTP handlers.
type Provider struct {
	Post *PostHandler
}

func NewProvider(service *post.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Post: NewPostHandler(service, log),
	}
}
