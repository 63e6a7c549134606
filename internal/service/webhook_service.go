package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"strings"
	"time"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/ratelimit"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/types"
)

// WebhookPath is the public path of the lead webhook
const WebhookPath = "/api/webhook/leads"

// WebhookThrottle limits webhook submissions per account
type WebhookThrottle interface {
	Allow(ctx context.Context, subject string) (ratelimit.Decision, error)
}

// WebhookService ingests leads submitted by external forms
type WebhookService struct {
	users    UserRepository
	settings SettingsRepository
	leads    *LeadService
	notifier LeadNotifier
	drafts   *DraftService
	throttle WebhookThrottle
	baseURL  string
}

// NewWebhookService creates a new webhook service. notifier, drafts and
// throttle may be nil.
func NewWebhookService(
	users UserRepository,
	settings SettingsRepository,
	leads *LeadService,
	notifier LeadNotifier,
	drafts *DraftService,
	throttle WebhookThrottle,
	baseURL string,
) *WebhookService {
	return &WebhookService{
		users:    users,
		settings: settings,
		leads:    leads,
		notifier: notifier,
		drafts:   drafts,
		throttle: throttle,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Authenticate checks that userID names an account and that apiKey matches
// its webhook key. Accounts without a configured key accept any key. The
// returned settings are nil when the account has none.
func (s *WebhookService) Authenticate(ctx context.Context, userID, apiKey string) (*models.UserSettings, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewUnauthorizedError("Invalid user ID or user not found")
		}
		return nil, apperrors.NewStoreError("get user", err)
	}

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStoreError("get settings", err)
	}

	if settings.WebhookAPIKey != nil && *settings.WebhookAPIKey != "" &&
		subtle.ConstantTimeCompare([]byte(*settings.WebhookAPIKey), []byte(apiKey)) != 1 {
		return nil, apperrors.NewUnauthorizedError("Invalid API key")
	}

	return settings, nil
}

// Ingest authenticates the submission, stores the lead and runs the
// best-effort follow-ups: in-app notification, owner email and, when
// enabled, an automatic welcome draft.
func (s *WebhookService) Ingest(ctx context.Context, userID, apiKey string, fields models.LeadFields) (*models.Lead, error) {
	settings, err := s.Authenticate(ctx, userID, apiKey)
	if err != nil {
		return nil, err
	}

	if err := s.checkThrottle(ctx, userID); err != nil {
		return nil, err
	}

	if fields.Source == "" {
		fields.Source = types.SourceWebhook
	}
	lead, err := s.leads.CreateLead(ctx, userID, fields)
	if err != nil {
		return nil, err
	}

	// The lead is stored; follow-ups run to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if s.notifier != nil {
		s.notifier.OnLeadCreated(ctx, lead)
	}

	if s.drafts != nil && settings != nil && settings.AutoGenerateDrafts {
		if _, err := s.drafts.AutoDraft(ctx, lead); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("lead_id", lead.ID).
				Warn("automatic draft generation failed")
		}
	}

	return lead, nil
}

func (s *WebhookService) checkThrottle(ctx context.Context, userID string) error {
	if s.throttle == nil {
		return nil
	}
	decision, err := s.throttle.Allow(ctx, userID)
	if err != nil {
		// Redis trouble must not block lead intake.
		logging.FromContext(ctx).WithError(err).Warn("webhook throttle unavailable, allowing request")
		return nil
	}
	if !decision.Allowed {
		return apperrors.NewRateLimitError(retryAfterSeconds(decision.RetryAfter))
	}
	return nil
}

// WebhookURL returns the public webhook address
func (s *WebhookService) WebhookURL() string {
	return s.baseURL + WebhookPath
}

// WebhookInfo documents the webhook for integrators
type WebhookInfo struct {
	WebhookURL     string            `json:"webhook_url"`
	Method         string            `json:"method"`
	RequiredFields []string          `json:"required_fields"`
	OptionalFields []string          `json:"optional_fields"`
	ExamplePayload map[string]string `json:"example_payload"`
}

// Info returns the discovery document for an account
func (s *WebhookService) Info(userID string) *WebhookInfo {
	return &WebhookInfo{
		WebhookURL:     s.WebhookURL(),
		Method:         "POST",
		RequiredFields: []string{"name", "email", "user_id", "api_key"},
		OptionalFields: []string{"phone", "event_date", "event_type", "budget_range", "message", "source"},
		ExamplePayload: map[string]string{
			"name":         "Jane Smith",
			"email":        "jane@example.com",
			"phone":        "+1234567890",
			"event_date":   "2024-06-15",
			"event_type":   "wedding",
			"budget_range": "$5000-$10000",
			"message":      "Looking for wedding photography services",
			"source":       "website_contact_form",
			"user_id":      userID,
			"api_key":      "your_api_key_here",
		},
	}
}

// TestLeadPayload is the submission used by the webhook self-test
type TestLeadPayload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	EventDate   string `json:"event_date"`
	EventType   string `json:"event_type"`
	BudgetRange string `json:"budget_range"`
	Message     string `json:"message"`
	Source      string `json:"source"`
	UserID      string `json:"user_id"`
	APIKey      string `json:"api_key"`
}

// NewTestLeadPayload returns the fixed self-test submission
func NewTestLeadPayload(userID, apiKey string) TestLeadPayload {
	return TestLeadPayload{
		Name:        "Test Lead",
		Email:       "test@example.com",
		Phone:       "+1234567890",
		EventDate:   "2024-12-31",
		EventType:   "wedding",
		BudgetRange: "$5000-$10000",
		Message:     "This is a test lead created via webhook",
		Source:      types.SourceWebhookTest,
		UserID:      userID,
		APIKey:      apiKey,
	}
}

// Fields returns the storable part of the test submission
func (p TestLeadPayload) Fields() models.LeadFields {
	return models.LeadFields{
		Name:        p.Name,
		Email:       p.Email,
		Phone:       &p.Phone,
		EventDate:   &p.EventDate,
		EventType:   &p.EventType,
		BudgetRange: &p.BudgetRange,
		Message:     &p.Message,
		Source:      p.Source,
	}
}

// retryAfterSeconds rounds a wait up to whole seconds for Retry-After headers
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
