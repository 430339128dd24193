package responses

import "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"

// RegisterResponse is returned with 201 after registration.
type RegisterResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
}

// TokenPairResponse is returned after a rotation.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func BuildRegisterResponse(pair *credential.Pair) *RegisterResponse {
	return &RegisterResponse{
		Success:      true,
		Message:      "User registered successfully",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

func BuildLoginResponse(userID string, pair *credential.Pair) *LoginResponse {
	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       userID,
	}
}

func BuildTokenPairResponse(pair *credential.Pair) *TokenPairResponse {
	return &TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}
