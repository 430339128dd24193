package handlers

import (
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
)

// Provider wires HTTP handlers.
type Provider struct {
	Auth *AuthHandler
}

func NewProvider(service *identity.Service, authority *credential.Authority, log zerolog.Logger) *Provider {
	return &Provider{
		Auth: NewAuthHandler(service, authority, log),
	}
}
