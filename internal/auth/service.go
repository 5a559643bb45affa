package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/users"
)

// UserFinder loads accounts by login name.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (users.User, error)
}

// Revoker tracks logged-out tokens.
type Revoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service wraps authentication business rules.
type Service struct {
	users    UserFinder
	tokens   *TokenService
	revoked  Revoker
	activity audit.Writer
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(finder UserFinder, tokens *TokenService, revoked Revoker, activity audit.Writer, logger *slog.Logger) *Service {
	return &Service{users: finder, tokens: tokens, revoked: revoked, activity: activity, logger: logger}
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TokenResponse{}, shared.ErrInvalidCredentials
		}
		return TokenResponse{}, err
	}
	if !user.IsActive {
		return TokenResponse{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenResponse{}, shared.ErrInvalidCredentials
	}
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := audit.Emit(ctx, s.activity, claims.Actor(), audit.EventUserLogin, nil); err != nil {
		s.logger.Warn("record login", slog.String("user", user.Username), slog.Any("error", err))
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		Role:        user.Role,
	}, nil
}

// Logout revokes the token behind claims for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	if claims.ExpiresAt == nil {
		return shared.ErrUnauthorized
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Sub(s.tokens.now()))
}

// Authenticate resolves a bearer token to its claims.
func (s *Service) Authenticate(ctx context.Context, raw string) (Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, err
	}
	if revoked {
		return Claims{}, shared.ErrUnauthorized
	}
	return claims, nil
}
