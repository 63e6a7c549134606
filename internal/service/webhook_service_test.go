package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/ratelimit"
	"github.com/ettore-crm/internal/testutil"
	"github.com/ettore-crm/internal/types"
)

func webhookFields(name, email string) models.LeadFields {
	return models.LeadFields{Name: name, Email: email}
}

func TestIngest_CreatesNewMediumLead(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")

	lead, err := f.webhook.Ingest(context.Background(), owner, "anything", webhookFields("Mario Rossi", "mario@example.com"))
	require.NoError(t, err)

	assert.Equal(t, "Mario Rossi", lead.Name)
	assert.Equal(t, "mario@example.com", lead.Email)
	assert.Equal(t, types.StatusNew, lead.Status)
	assert.Equal(t, types.PriorityMedium, lead.Priority)
	assert.Equal(t, types.SourceWebhook, lead.Source)

	rows := f.store.NotificationRows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.NotificationNewLead, rows[0].Type)
	assert.Equal(t, "New lead from Mario Rossi (mario@example.com)", rows[0].Message)

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "new_lead", logs[0].EmailType)
}

func TestIngest_KeepsSubmittedSource(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")

	fields := webhookFields("Jane", "jane@example.com")
	fields.Source = "website_contact_form"
	lead, err := f.webhook.Ingest(context.Background(), owner, "", fields)
	require.NoError(t, err)
	assert.Equal(t, "website_contact_form", lead.Source)
}

func TestIngest_Authentication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keyed := f.ownerWith("keyed@example.com", func(*models.UserSettings) {})
	require.NoError(t, f.store.Settings().SetAPIKey(ctx, keyed, "ettore_secret"))

	tests := []struct {
		name    string
		userID  string
		apiKey  string
		wantMsg string
	}{
		{name: "unknown user", userID: "00000000-0000-0000-0000-000000000000", apiKey: "k", wantMsg: "Invalid user ID or user not found"},
		{name: "wrong key", userID: keyed, apiKey: "ettore_wrong", wantMsg: "Invalid API key"},
		{name: "missing key", userID: keyed, apiKey: "", wantMsg: "Invalid API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.webhook.Ingest(ctx, tt.userID, tt.apiKey, webhookFields("Jane", "jane@example.com"))
			require.Error(t, err)
			catErr := apperrors.Categorize(err)
			assert.Equal(t, 401, catErr.StatusCode)
			assert.Equal(t, tt.wantMsg, catErr.Message)
		})
	}
	assert.Zero(t, f.store.LeadCount())

	lead, err := f.webhook.Ingest(ctx, keyed, "ettore_secret", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)
	assert.Equal(t, keyed, lead.UserID)
}

func TestIngest_NoSettingsAcceptsAnyKey(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUserWithoutSettings("fresh@example.com")

	_, err := f.webhook.Ingest(context.Background(), owner, "whatever", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)

	// No settings means no email, but the in-app notification is still created.
	assert.Len(t, f.store.NotificationRows(), 1)
	assert.Empty(t, f.transport.Sent())
}

func TestIngest_AutoDraft(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("owner@example.com", func(s *models.UserSettings) {
		s.AutoGenerateDrafts = true
		s.EmailNotifications = true
	})

	lead, err := f.webhook.Ingest(context.Background(), owner, "", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)

	drafts, err := f.drafts.ListDrafts(context.Background(), owner, &lead.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, types.TemplateWelcome, drafts[0].TemplateType)

	kinds := []types.NotificationType{}
	for _, n := range f.store.NotificationRows() {
		kinds = append(kinds, n.Type)
	}
	assert.Equal(t, []types.NotificationType{types.NotificationNewLead, types.NotificationDraftGenerated}, kinds)
}

func TestIngest_ClientDisconnectKeepsFollowUps(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("owner@example.com", func(s *models.UserSettings) {
		s.AutoGenerateDrafts = true
		s.EmailNotifications = true
	})

	// The form submitter hangs up as soon as the lead row is stored.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.store.AfterLeadWrite = cancel

	lead, err := f.webhook.Ingest(ctx, owner, "", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, 1, f.store.LeadCount())

	kinds := []types.NotificationType{}
	for _, n := range f.store.NotificationRows() {
		kinds = append(kinds, n.Type)
	}
	assert.Equal(t, []types.NotificationType{types.NotificationNewLead, types.NotificationDraftGenerated}, kinds)

	logs := f.store.EmailLogRows()
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, types.EmailStatusSent, l.Status)
	}

	drafts, err := f.drafts.ListDrafts(context.Background(), owner, &lead.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestIngest_AutoDraftFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("owner@example.com", func(s *models.UserSettings) {
		s.AutoGenerateDrafts = true
	})
	f.generator.Err = errors.New("provider down")

	lead, err := f.webhook.Ingest(context.Background(), owner, "", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)

	drafts, err := f.drafts.ListDrafts(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestIngest_Throttled(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	f.withThrottle(&testutil.StaticThrottle{Limit: 1})

	_, err := f.webhook.Ingest(context.Background(), owner, "", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)

	_, err = f.webhook.Ingest(context.Background(), owner, "", webhookFields("Jane", "jane@example.com"))
	require.Error(t, err)
	catErr := apperrors.Categorize(err)
	assert.Equal(t, apperrors.CategoryRateLimit, catErr.Category)
	assert.Equal(t, 30, catErr.RetryAfter)
	assert.Equal(t, 1, f.store.LeadCount())
}

func TestIngest_ThrottleRunsAfterAuthentication(t *testing.T) {
	f := newFixture(t)
	throttle := &testutil.StaticThrottle{Limit: 1}
	f.withThrottle(throttle)

	for i := 0; i < 3; i++ {
		_, err := f.webhook.Ingest(context.Background(), "00000000-0000-0000-0000-000000000000", "", webhookFields("Jane", "jane@example.com"))
		assert.Equal(t, 401, apperrors.Categorize(err).StatusCode)
	}
}

func TestIngest_ThrottleErrorFailsOpen(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	f.withThrottle(&testutil.StaticThrottle{Err: errors.New("redis: connection refused")})

	_, err := f.webhook.Ingest(context.Background(), owner, "", webhookFields("Jane", "jane@example.com"))
	require.NoError(t, err)
}

func TestIngest_RedisThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewWebhookLimiter(&ratelimit.WebhookLimiterConfig{
		Redis:  client,
		Limit:  2,
		Window: time.Hour,
	})
	require.NoError(t, err)

	f := newFixture(t)
	ownerA := f.owner("a@example.com")
	ownerB := f.owner("b@example.com")
	f.withThrottle(limiter)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.webhook.Ingest(ctx, ownerA, "", webhookFields("Jane", "jane@example.com"))
		require.NoError(t, err)
	}
	_, err = f.webhook.Ingest(ctx, ownerA, "", webhookFields("Jane", "jane@example.com"))
	require.Error(t, err)
	assert.Equal(t, 429, apperrors.Categorize(err).StatusCode)
	assert.Positive(t, apperrors.Categorize(err).RetryAfter)

	_, err = f.webhook.Ingest(ctx, ownerB, "", webhookFields("Bruno", "bruno@example.com"))
	require.NoError(t, err, "budgets are per account")
}

func TestWebhookInfo(t *testing.T) {
	f := newFixture(t)

	info := f.webhook.Info("user-1")
	assert.Equal(t, testBaseURL+"/api/webhook/leads", info.WebhookURL)
	assert.Equal(t, "POST", info.Method)
	assert.Equal(t, []string{"name", "email", "user_id", "api_key"}, info.RequiredFields)
	assert.Equal(t, "user-1", info.ExamplePayload["user_id"])
}

func TestTestLeadPayload(t *testing.T) {
	payload := NewTestLeadPayload("user-1", "key-1")
	fields := payload.Fields()

	assert.Equal(t, "Test Lead", fields.Name)
	assert.Equal(t, types.SourceWebhookTest, fields.Source)
	require.NotNil(t, fields.EventDate)
	assert.Equal(t, "2024-12-31", *fields.EventDate)
	assert.Equal(t, "key-1", payload.APIKey)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(time.Millisecond))
	assert.Equal(t, 50, retryAfterSeconds(49*time.Second+time.Millisecond))
	assert.Equal(t, 0, retryAfterSeconds(0))
}
