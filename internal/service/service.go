// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// canonicalID parses a UUID taken from a request body and returns it in the
// lower-case form the stores key on.
func canonicalID(field, raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", BadRequest("%s must be a UUID, got %q", field, raw)
	}
	return id.String(), nil
}

// UserService manages the user directory used by admins.
type UserService struct {
	users  repository.UserStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(users repository.UserStore, logger zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With().Str("component", "users").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a user. Emails are unique, compared case-insensitively.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if name == "" {
		return nil, BadRequest("name is required")
	}
	if email == "" {
		return nil, BadRequest("email is required")
	}

	user := &model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().Truncate(time.Microsecond),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict("email %s is already registered", email)
		}
		return nil, Internal(err, "create user")
	}
	loggerFrom(ctx, &s.logger).Info().Str("user_id", user.ID).Msg("user created")
	return user, nil
}

// GetUser returns a single user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user %s not found", id)
	}
	return user, nil
}

// ListUsers pages users, optionally restricted to ids.
func (s *UserService) ListUsers(ctx context.Context, ids []string, offset, limit int) ([]model.User, error) {
	users, err := s.users.List(ctx, ids, offset, limit)
	if err != nil {
		return nil, Internal(err, "list users")
	}
	return users, nil
}

// DeleteUser removes a user together with their events and requests.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err, "user %s not found", id)
	}
	loggerFrom(ctx, &s.logger).Info().Str("user_id", id).Msg("user deleted")
	return nil
}
