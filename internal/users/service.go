package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/audit"
	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
	cost int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// Create stores a new account with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateUserInput) (User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" {
		return User{}, shared.Validationf("username is required")
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	known := false
	for _, r := range shared.Roles() {
		known = known || r == role
	}
	if !known {
		return User{}, shared.Validationf("unknown role %q", input.Role)
	}
	if len(input.Password) < 8 {
		return User{}, shared.Validationf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	var out User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.InsertUser(ctx, User{
			Username:     username,
			Email:        strings.ToLower(strings.TrimSpace(input.Email)),
			Role:         role,
			PasswordHash: string(hash),
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		out = created
		return audit.Emit(ctx, tx, actor, audit.EventUserCreated, map[string]any{
			"username": created.Username,
			"role":     created.Role,
		})
	})
	return out, err
}

// FindByUsername loads an account for sign-in.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// EnsureAdmin creates the bootstrap administrator when the username is not
// taken yet. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, shared.ErrNotFound):
		return false, err
	}
	_, err = s.Create(ctx, shared.SystemActor, CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     shared.RoleAdmin,
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		return false, nil
	}
	return err == nil, err
}
