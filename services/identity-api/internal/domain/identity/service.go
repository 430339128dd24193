package identity

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	pkgcredential "github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/idgen"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/pkg/telemetry"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/metrics"
)

const (
	minUsernameLength = 6
	minPasswordLength = 6
	maxFieldLength    = 255
)

// Repository defines persistence operations needed by the service.
type Repository interface {
	// Create returns a CONFLICT platform error when username or email is taken.
	Create(ctx context.Context, user *User) error
	// FindByEmail returns nil, nil when no user matches.
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// TokenIssuer issues a credential pair for a verified identity.
type TokenIssuer interface {
	Issue(ctx context.Context, id pkgcredential.Identity) (*credential.Pair, error)
}

// Service registers and authenticates users.
type Service struct {
	repo      Repository
	issuer    TokenIssuer
	params    PasswordParams
	sanitizer *telemetry.Sanitizer
	log       zerolog.Logger
}

func NewService(repo Repository, issuer TokenIssuer, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		issuer:    issuer,
		params:    DefaultPasswordParams,
		sanitizer: sanitizer,
		log:       log.With().Str("component", "identity-service").Logger(),
	}
}

// WithPasswordParams overrides the argon2id cost, mainly for tests.
func (s *Service) WithPasswordParams(p PasswordParams) *Service {
	s.params = p
	return s
}

// Register creates a user and issues its first credential pair.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, *credential.Pair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)
	if err := validateRegistration(ctx, in); err != nil {
		metrics.RecordAuthAttempt("register", "invalid")
		return nil, nil, err
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		metrics.RecordAuthAttempt("register", "exists")
		s.log.Warn().Str("email", s.sanitizer.Email(in.Email)).Msg("registration for existing user")
		return nil, nil, userExists(ctx, nil)
	}

	hash, err := HashPassword(in.Password, s.params)
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to hash password", err, "0b7d6e2a-51c4-4f38-a9e0-6d2c84b1f573")
	}

	user := &User{
		ID:           idgen.New(idgen.PrefixUser),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict) {
			metrics.RecordAuthAttempt("register", "exists")
			return nil, nil, userExists(ctx, err)
		}
		return nil, nil, err
	}

	pair, err := s.issuer.Issue(ctx, pkgcredential.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordAuthAttempt("register", "success")
	s.log.Info().Str("user_id", user.ID).Str("email", s.sanitizer.Email(user.Email)).Msg("user registered")
	return user, pair, nil
}

// Login checks the password and issues a credential pair.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *credential.Pair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		metrics.RecordAuthAttempt("login", "invalid")
		return nil, nil, validationError(ctx, "Email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		metrics.RecordAuthAttempt("login", "unknown_email")
		s.log.Warn().Str("email", s.sanitizer.Email(email)).Msg("login for unknown email")
		return nil, nil, validationError(ctx, "Invalid email")
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"stored password hash is unreadable", err, "e6a3f1c8-2b94-4d07-8c5e-7f10a9b3d2c6")
	}
	if !ok {
		metrics.RecordAuthAttempt("login", "bad_password")
		s.log.Warn().Str("user_id", user.ID).Msg("login with wrong password")
		return nil, nil, validationError(ctx, "Invalid password")
	}

	pair, err := s.issuer.Issue(ctx, pkgcredential.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, nil, err
	}

	metrics.RecordAuthAttempt("login", "success")
	return user, pair, nil
}

func validateRegistration(ctx context.Context, in RegisterInput) error {
	switch {
	case utf8.RuneCountInString(in.Username) < minUsernameLength || utf8.RuneCountInString(in.Username) > maxFieldLength:
		return validationError(ctx, "Username must be between 6 and 255 characters")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return validationError(ctx, "A valid email is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLength || utf8.RuneCountInString(in.Password) > maxFieldLength:
		return validationError(ctx, "Password must be between 6 and 255 characters")
	}
	return nil
}

func validationError(ctx context.Context, message string) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		message, nil, "5d9e0a72-c3b1-4e86-a47f-28b6d1e05c93")
}

func userExists(ctx context.Context, cause error) *platformerrors.PlatformError {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		"User already exists", cause, "91c4b7e3-0f2a-4d58-b6e1-a3c7f9d02e48")
}
