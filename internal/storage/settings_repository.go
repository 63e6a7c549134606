package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ettore-crm/internal/models"
)

// SettingsRepository handles per-account settings
type SettingsRepository struct {
	db *PostgresDB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *PostgresDB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

const settingsColumns = `
	user_id, business_name, display_name, services, ai_tone, ai_creativity,
	auto_generate_drafts, custom_instructions, signature, email_notifications,
	webhook_api_key, created_at, updated_at`

// Get returns the settings row of a user, or ErrNotFound
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	query := `SELECT ` + settingsColumns + ` FROM user_settings WHERE user_id = $1`

	var s models.UserSettings
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.BusinessName,
		&s.DisplayName,
		&s.Services,
		&s.AITone,
		&s.AICreativity,
		&s.AutoGenerateDrafts,
		&s.CustomInstructions,
		&s.Signature,
		&s.EmailNotifications,
		&s.WebhookAPIKey,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", translateError(err))
	}
	if s.Services == nil {
		s.Services = []string{}
	}

	return &s, nil
}

// Upsert writes the full settings row. The webhook key is managed by
// SetAPIKey and is not touched here.
func (r *SettingsRepository) Upsert(ctx context.Context, s *models.UserSettings) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Services == nil {
		s.Services = []string{}
	}

	query := `
		INSERT INTO user_settings (
			user_id, business_name, display_name, services, ai_tone, ai_creativity,
			auto_generate_drafts, custom_instructions, signature, email_notifications,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			display_name = EXCLUDED.display_name,
			services = EXCLUDED.services,
			ai_tone = EXCLUDED.ai_tone,
			ai_creativity = EXCLUDED.ai_creativity,
			auto_generate_drafts = EXCLUDED.auto_generate_drafts,
			custom_instructions = EXCLUDED.custom_instructions,
			signature = EXCLUDED.signature,
			email_notifications = EXCLUDED.email_notifications,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		s.UserID,
		s.BusinessName,
		s.DisplayName,
		s.Services,
		s.AITone,
		s.AICreativity,
		s.AutoGenerateDrafts,
		s.CustomInstructions,
		s.Signature,
		s.EmailNotifications,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", translateError(err))
	}

	return nil
}

// SetAPIKey replaces the webhook API key of a user
func (r *SettingsRepository) SetAPIKey(ctx context.Context, userID, apiKey string) error {
	query := `
		UPDATE user_settings
		SET webhook_api_key = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query, userID, apiKey)
	if err != nil {
		return fmt.Errorf("failed to set api key: %w", translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set api key: %w", ErrNotFound)
	}

	return nil
}
