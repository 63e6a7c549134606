package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
)

// msgInvalidCredentials is shared by unknown emails and wrong passwords
const msgInvalidCredentials = "Invalid email or password"

// AuthService handles account sign-up and password login
type AuthService struct {
	users    UserRepository
	settings SettingsRepository
	cost     int
}

// NewAuthService creates a new auth service using bcrypt.DefaultCost
func NewAuthService(users UserRepository, settings SettingsRepository) *AuthService {
	return &AuthService{users: users, settings: settings, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// SignUp creates an account and its default settings
func (s *AuthService) SignUp(ctx context.Context, email, password string, displayName *string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperrors.NewConflictError("An account with this email already exists")
		}
		return nil, apperrors.NewStoreError("create user", err)
	}

	settings := models.DefaultSettings(user.ID)
	settings.DisplayName = displayName
	if err := s.settings.Upsert(ctx, settings); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("user_id", user.ID).
			Error("failed to create default settings")
	}

	logging.FromContext(ctx).WithField("user_id", user.ID).Info("account created")
	return user, nil
}

// Login checks a password. Unknown emails and wrong passwords are reported
// the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError(msgInvalidCredentials)
		}
		return nil, apperrors.NewStoreError("get user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewUnauthorizedError(msgInvalidCredentials)
	}
	return user, nil
}

// GetUser returns the account of a session
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError("Unauthorized")
		}
		return nil, apperrors.NewStoreError("get user", err)
	}
	return user, nil
}
