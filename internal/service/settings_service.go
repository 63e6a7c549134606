package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
)

// SettingsPatch is a partial settings update
type SettingsPatch interface {
	Apply(settings *models.UserSettings)
}

// SettingsService reads and updates per-account settings
type SettingsService struct {
	settings SettingsRepository
	now      func() time.Time
}

// NewSettingsService creates a new settings service
func NewSettingsService(settings SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings, now: time.Now}
}

// Get returns the owner's settings, or the defaults when none are stored
func (s *SettingsService) Get(ctx context.Context, ownerID string) (*models.UserSettings, error) {
	settings, err := s.settings.Get(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.DefaultSettings(ownerID), nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get settings", err)
	}
	return settings, nil
}

// Update merges patch into the stored settings
func (s *SettingsService) Update(ctx context.Context, ownerID string, patch SettingsPatch) (*models.UserSettings, error) {
	settings, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	patch.Apply(settings)
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, apperrors.NewStoreError("update settings", err)
	}
	return settings, nil
}

// GenerateAPIKey issues a new webhook key, replacing the previous one. The
// key has the form ettore_<user prefix>_<unix millis>_<random>.
func (s *SettingsService) GenerateAPIKey(ctx context.Context, ownerID string) (string, error) {
	if _, err := s.settings.Get(ctx, ownerID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.NewStoreError("get settings", err)
		}
		if err := s.settings.Upsert(ctx, models.DefaultSettings(ownerID)); err != nil {
			return "", apperrors.NewStoreError("create settings", err)
		}
	}

	key := NewAPIKey(ownerID, s.now())
	if err := s.settings.SetAPIKey(ctx, ownerID, key); err != nil {
		return "", apperrors.NewStoreError("set api key", err)
	}
	return key, nil
}

// NewAPIKey builds a webhook key for a user
func NewAPIKey(userID string, now time.Time) string {
	prefix := strings.ReplaceAll(userID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ettore_%s_%d_%s", prefix, now.UnixMilli(), random[:16])
}
