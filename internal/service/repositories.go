package service

import (
	"context"
	"errors"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/llm"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/types"
)

// Repository interfaces for dependency injection

// UserRepository interface for account lookups
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SettingsRepository interface for per-account settings
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
	SetAPIKey(ctx context.Context, userID, apiKey string) error
}

// LeadRepository interface for owner-scoped lead operations
type LeadRepository interface {
	Create(ctx context.Context, ownerID string, fields models.LeadFields) (*models.Lead, error)
	Get(ctx context.Context, ownerID, leadID string) (*models.Lead, error)
	Update(ctx context.Context, ownerID, leadID string, update models.LeadUpdate) (*models.Lead, types.LeadStatus, error)
	List(ctx context.Context, ownerID string, filter models.LeadFilter) ([]*models.Lead, error)
	Count(ctx context.Context, ownerID string, status types.LeadStatus) (int, error)
}

// ActivityRepository interface for the lead activity log
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.LeadActivity) error
	ListByLead(ctx context.Context, ownerID, leadID string) ([]*models.LeadActivity, error)
}

// NotificationRepository interface for in-app notifications and email logs
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, ownerID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
	LogEmail(ctx context.Context, entry *models.EmailLog) error
}

// DraftRepository interface for email drafts
type DraftRepository interface {
	Create(ctx context.Context, draft *models.EmailDraft) error
	List(ctx context.Context, ownerID string, leadID *string) ([]*models.EmailDraft, error)
	Update(ctx context.Context, ownerID, id string, update models.DraftUpdate) (*models.EmailDraft, error)
	Delete(ctx context.Context, ownerID, id string) error
	Count(ctx context.Context, ownerID string) (int, error)
}

// TextGenerator is the text-generation capability used for drafts
type TextGenerator interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// LeadNotifier receives lead lifecycle events. Implementations log and
// swallow their own failures.
type LeadNotifier interface {
	OnLeadCreated(ctx context.Context, lead *models.Lead)
	OnStatusChanged(ctx context.Context, lead *models.Lead, oldStatus, newStatus types.LeadStatus)
	OnDraftGenerated(ctx context.Context, lead *models.Lead, draft *models.EmailDraft)
}

// storeError maps storage.ErrNotFound to a NotFound error for resource and
// wraps everything else as a store error.
func storeError(resource, operation string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewNotFoundError(resource)
	}
	return apperrors.NewStoreError(operation, err)
}
