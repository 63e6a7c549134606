package service

import (
	"context"
	"testing"

	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/testutil"
)

const testBaseURL = "https://app.ettore.test"

// fixture wires every service over one in-memory store
type fixture struct {
	store         *testutil.MemoryStore
	transport     *testutil.RecordingTransport
	generator     *testutil.FakeGenerator
	notifications *NotificationService
	leads         *LeadService
	drafts        *DraftService
	webhook       *WebhookService
	auth          *AuthService
	settings      *SettingsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	transport := &testutil.RecordingTransport{}
	generator := &testutil.FakeGenerator{Replies: []string{"Hello Jane, thank you for reaching out.", `"Your Wedding Inquiry"`}}

	notifications := NewNotificationService(store.Users(), store.Settings(), store.Leads(), store.Notifications(), transport, testBaseURL)
	leads := NewLeadService(store.Leads(), store.Activities(), store.Drafts(), notifications)
	drafts := NewDraftService(generator, store.Leads(), store.Settings(), store.Users(), store.Drafts(), notifications)

	return &fixture{
		store:         store,
		transport:     transport,
		generator:     generator,
		notifications: notifications,
		leads:         leads,
		drafts:        drafts,
		webhook:       NewWebhookService(store.Users(), store.Settings(), leads, notifications, drafts, nil, testBaseURL),
		auth:          NewAuthService(store.Users(), store.Settings()).WithHashCost(4),
		settings:      NewSettingsService(store.Settings()),
	}
}

// withThrottle rebuilds the webhook service with a throttle
func (f *fixture) withThrottle(throttle WebhookThrottle) {
	f.webhook = NewWebhookService(f.store.Users(), f.store.Settings(), f.leads, f.notifications, f.drafts, throttle, testBaseURL)
}

// owner adds an account with email notifications on
func (f *fixture) owner(email string) string {
	return f.store.AddUser(email, nil)
}

// ownerWith adds an account with customised settings
func (f *fixture) ownerWith(email string, edit func(*models.UserSettings)) string {
	settings := models.DefaultSettings("")
	edit(settings)
	return f.store.AddUser(email, settings)
}

func (f *fixture) lead(t *testing.T, ownerID, name string) *models.Lead {
	t.Helper()
	eventType := "wedding"
	eventDate := "2025-09-20"
	lead, err := f.leads.CreateLead(context.Background(), ownerID, models.LeadFields{
		Name:      name,
		Email:     "client@example.com",
		EventType: &eventType,
		EventDate: &eventDate,
	})
	if err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	return lead
}

func strPtr(s string) *string { return &s }
