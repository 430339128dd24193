// Package credential holds the access-credential contract shared by the
// identity service, which signs, and the gateway, which only verifies.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TrustedUserHeader is set by the gateway from a verified credential. Services
// behind the gateway treat it as authenticated fact.
const TrustedUserHeader = "X-User-Id"

var (
	// ErrInvalid covers bad signatures, wrong algorithms, malformed tokens and missing claims.
	ErrInvalid = errors.New("credential invalid")
	// ErrExpired is returned for well-formed tokens past their expiry. Callers must
	// respond exactly as they do for ErrInvalid.
	ErrExpired = errors.New("credential expired")
)

// Identity is the subject embedded in an access credential.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Claims is the JWT body.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Signer issues HS256 access credentials.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("credential: signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("credential: ttl must be positive, got %s", ttl)
	}
	return &Signer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Sign returns the signed token and its expiry.
func (s *Signer) Sign(id Identity) (string, time.Time, error) {
	if id.UserID == "" {
		return "", time.Time{}, fmt.Errorf("credential: empty subject")
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("credential: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// Verifier validates access credentials without any lookup.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret, issuer string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("credential: verification secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify returns the embedded identity, ErrExpired or ErrInvalid.
func (v *Verifier) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalid
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, ErrInvalid
	}
	if !token.Valid || claims.UserID == "" {
		return Identity{}, ErrInvalid
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
