package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkgcredential "github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
)

// rotationTokenBytes is the entropy of an opaque rotation token before hex encoding.
const rotationTokenBytes = 40

// Auth failures. Callers must not reveal which one occurred.
var (
	ErrInvalid     = pkgcredential.ErrInvalid
	ErrExpired     = pkgcredential.ErrExpired
	ErrNotFound    = errors.New("rotation token not found")
	ErrAlreadyUsed = errors.New("rotation token already used")
)

// RotationToken is the stored form of a refresh token.
type RotationToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenRepository persists rotation token hashes.
type TokenRepository interface {
	Create(ctx context.Context, token *RotationToken) error
	// FindByHash returns nil, nil when no row matches.
	FindByHash(ctx context.Context, hash string) (*RotationToken, error)
	// DeleteByHash reports whether this call removed the row. Concurrent callers
	// racing on the same hash see true at most once.
	DeleteByHash(ctx context.Context, hash string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// IdentityResolver loads the subject a rotation token belongs to.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID string) (pkgcredential.Identity, error)
}

// Pair is an access credential together with its rotation token.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Authority issues, verifies, rotates and revokes credentials.
type Authority struct {
	signer     *pkgcredential.Signer
	verifier   *pkgcredential.Verifier
	tokens     TokenRepository
	identities IdentityResolver
	refreshTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func NewAuthority(cfg *config.Config, tokens TokenRepository, identities IdentityResolver, log zerolog.Logger) (*Authority, error) {
	signer, err := pkgcredential.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	verifier, err := pkgcredential.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive, got %s", cfg.RefreshTokenTTL)
	}
	return &Authority{
		signer:     signer,
		verifier:   verifier,
		tokens:     tokens,
		identities: identities,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		log:        log.With().Str("component", "credential-authority").Logger(),
	}, nil
}

// Issue signs an access credential and stores a fresh rotation token for id.
func (a *Authority) Issue(ctx context.Context, id pkgcredential.Identity) (*Pair, error) {
	access, accessExpiresAt, err := a.signer.Sign(id)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to sign access token", err, "4f0c7a51-2d8e-4b3a-9c61-0e5b8d2f7a14")
	}

	raw, err := newRotationToken()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to generate refresh token", err, "a2d94e17-6b35-4c0f-8e72-91f3c5b0d648")
	}

	now := a.now()
	record := &RotationToken{
		ID:        uuid.NewString(),
		UserID:    id.UserID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(a.refreshTTL),
		CreatedAt: now,
	}
	if err := a.tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     raw,
		RefreshExpiresAt: record.ExpiresAt,
	}, nil
}

// Verify checks an access credential offline.
func (a *Authority) Verify(token string) (pkgcredential.Identity, error) {
	return a.verifier.Verify(token)
}

// Rotate consumes a rotation token and issues a new pair. Of several concurrent
// rotations of the same token exactly one succeeds; the rest get ErrAlreadyUsed.
func (a *Authority) Rotate(ctx context.Context, raw string) (*Pair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, authError(ctx, ErrNotFound)
	}
	hash := HashToken(raw)

	record, err := a.tokens.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, authError(ctx, ErrNotFound)
	}

	if !a.now().Before(record.ExpiresAt) {
		if _, err := a.tokens.DeleteByHash(ctx, hash); err != nil {
			a.log.Warn().Err(err).Str("user_id", record.UserID).Msg("failed to delete expired refresh token")
		}
		return nil, authError(ctx, ErrExpired)
	}

	removed, err := a.tokens.DeleteByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !removed {
		a.log.Warn().Str("user_id", record.UserID).Msg("refresh token reuse detected")
		return nil, authError(ctx, ErrAlreadyUsed)
	}

	// The presented token is spent from here on; a failure below leaves the
	// caller without a rotation token and they must log in again.
	identity, err := a.identities.ResolveIdentity(ctx, record.UserID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, authError(ctx, ErrInvalid)
		}
		a.log.Error().Err(err).Str("user_id", record.UserID).Msg("rotation token spent but identity lookup failed")
		return nil, err
	}

	pair, err := a.Issue(ctx, identity)
	if err != nil {
		a.log.Error().Err(err).Str("user_id", record.UserID).Msg("rotation token spent but reissue failed")
		return nil, err
	}
	return pair, nil
}

// Revoke deletes a rotation token. Unknown tokens are not an error.
func (a *Authority) Revoke(ctx context.Context, raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	return a.tokens.DeleteByHash(ctx, HashToken(raw))
}

// PurgeExpired removes rotation tokens whose expiry has passed.
func (a *Authority) PurgeExpired(ctx context.Context) (int64, error) {
	return a.tokens.DeleteExpired(ctx, a.now())
}

// HashToken returns the hex sha256 under which a rotation token is stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRotationToken() (string, error) {
	buf := make([]byte, rotationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func authError(ctx context.Context, cause error) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"Invalid or expired refresh token", cause, "c81e3f40-97d2-4a6b-b5e8-3d0f12a9c7e5")
}
