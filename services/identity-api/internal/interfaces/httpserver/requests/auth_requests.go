package requests

import "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=6,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

// ToDomain converts request to domain input
func (r *RegisterRequest) ToDomain() identity.RegisterInput {
	return identity.RegisterInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
	}
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest is the body of the refresh and logout routes. The token is
// checked by the handler so a missing value gets its own message.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}
