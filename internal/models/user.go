// Package models provides the persisted records of the Ettore lead manager.
package models

import (
	"strings"
	"time"
)

// User represents an account owning leads, drafts and notifications
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// AI tone presets accepted by UserSettings.AITone
const (
	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneCasual       = "casual"
	ToneFormal       = "formal"
	ToneWarm         = "warm"
)

// UserSettings holds per-account business profile and automation preferences
type UserSettings struct {
	UserID             string    `json:"userId" db:"user_id"`
	BusinessName       *string   `json:"businessName,omitempty" db:"business_name"`
	DisplayName        *string   `json:"displayName,omitempty" db:"display_name"`
	Services           []string  `json:"services" db:"services"`
	AITone             string    `json:"aiTone" db:"ai_tone"`
	AICreativity       float64   `json:"aiCreativity" db:"ai_creativity"`
	AutoGenerateDrafts bool      `json:"autoGenerateDrafts" db:"auto_generate_drafts"`
	CustomInstructions *string   `json:"customInstructions,omitempty" db:"custom_instructions"`
	Signature          *string   `json:"signature,omitempty" db:"signature"`
	EmailNotifications bool      `json:"emailNotifications" db:"email_notifications"`
	WebhookAPIKey      *string   `json:"webhookApiKey,omitempty" db:"webhook_api_key"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// DefaultSettings returns the settings row created with a new account.
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:             userID,
		Services:           []string{},
		AITone:             ToneProfessional,
		AICreativity:       0.7,
		EmailNotifications: true,
	}
}

// OwnerName returns the name used to sign generated drafts: the display
// name, else the local part of the owner's email, else "User".
func OwnerName(settings *UserSettings, email string) string {
	if settings != nil && settings.DisplayName != nil && strings.TrimSpace(*settings.DisplayName) != "" {
		return strings.TrimSpace(*settings.DisplayName)
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "User"
}
