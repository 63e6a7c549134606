package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
)

func TestNotify_DisabledSendsNothing(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("quiet@example.com", func(s *models.UserSettings) {
		s.EmailNotifications = false
	})
	lead := f.lead(t, owner, "Jane")

	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &lead.ID, NotificationContext{})
	assert.True(t, ok)
	assert.Empty(t, f.transport.Sent())
	assert.Empty(t, f.store.EmailLogRows())
}

func TestNotify_NoSettingsSendsNothing(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUserWithoutSettings("fresh@example.com")
	lead := f.lead(t, owner, "Jane")

	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &lead.ID, NotificationContext{})
	assert.True(t, ok)
	assert.Empty(t, f.transport.Sent())
	assert.Empty(t, f.store.EmailLogRows())
}

func TestNotify_SendsAndLogs(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("owner@example.com", func(s *models.UserSettings) {
		s.DisplayName = strPtr("Giulia")
		s.BusinessName = strPtr("Giulia Photo")
	})
	lead := f.lead(t, owner, "Jane Smith")

	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &lead.ID, NotificationContext{})
	require.True(t, ok)

	sent := f.transport.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "owner@example.com", sent[0].To)
	assert.Equal(t, "🎉 New Lead: Jane Smith - wedding", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Giulia")
	assert.Contains(t, sent[0].HTML, testBaseURL+"/dashboard/leads/"+lead.ID)
	assert.Contains(t, sent[0].Text, "September 20, 2025")

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "new_lead", logs[0].EmailType)
	assert.Equal(t, types.EmailStatusSent, logs[0].Status)
	assert.Equal(t, sent[0].Subject, logs[0].Subject)
	require.NotNil(t, logs[0].LeadID)
	assert.Equal(t, lead.ID, *logs[0].LeadID)
}

func TestNotify_TransportFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")
	f.transport.Err = errors.New("mailbox unavailable")

	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &lead.ID, NotificationContext{})
	assert.False(t, ok)

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, types.EmailStatusFailed, logs[0].Status)
}

func TestNotify_EmailLogFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")
	f.store.FailEmailLog = errors.New("table locked")

	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &lead.ID, NotificationContext{})
	assert.True(t, ok)
	assert.Len(t, f.transport.Sent(), 1)
}

func TestNotify_UnknownLead(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")

	missing := "00000000-0000-0000-0000-000000000000"
	ok := f.notifications.Notify(context.Background(), types.NotificationNewLead, owner, &missing, NotificationContext{})
	assert.False(t, ok)
	assert.Empty(t, f.transport.Sent())
}

func TestOnStatusChanged_RendersStatusPair(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	f.notifications.OnStatusChanged(context.Background(), lead, types.StatusContacted, types.StatusBooked)

	sent := f.transport.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "📋 Lead Status Updated: Jane - booked", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "📞")
	assert.Contains(t, sent[0].HTML, "🎉")

	rows := f.store.NotificationRows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.NotificationStatusChange, rows[0].Type)
	assert.Equal(t, TitleStatusChange, rows[0].Title)
	assert.Equal(t, "Jane status changed to booked", rows[0].Message)
	assert.False(t, rows[0].IsRead)

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "status_change", logs[0].EmailType)
}

func TestOnStatusChanged_UnknownStatusHasNoEmoji(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	f.notifications.OnStatusChanged(context.Background(), lead, types.LeadStatus("archived"), types.StatusLost)

	sent := f.transport.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "archived")
	assert.Empty(t, StatusEmoji("archived"))
}

func TestOnLeadCreated_NotificationFailureStillEmails(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")
	f.store.FailNotification = errors.New("insert failed")

	f.notifications.OnLeadCreated(context.Background(), lead)

	assert.Empty(t, f.store.NotificationRows())
	assert.Len(t, f.transport.Sent(), 1)
}

func TestOnDraftGenerated(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	f.notifications.OnDraftGenerated(context.Background(), lead, &models.EmailDraft{ID: "d1", TemplateType: types.TemplateFollowUp})

	rows := f.store.NotificationRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "A follow-up draft for Jane is ready for review", rows[0].Message)

	sent := f.transport.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "✨ AI Draft Ready: Response for Jane", sent[0].Subject)
}

func TestSend_StatusChangeRequiresBothStatuses(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	_, err := f.notifications.Send(context.Background(), owner, types.NotificationStatusChange, lead.ID,
		NotificationContext{NewStatus: types.StatusBooked})
	require.Error(t, err)

	catErr := apperrors.Categorize(err)
	assert.Equal(t, apperrors.CategoryValidation, catErr.Category)
	assert.Equal(t, "Old and new status required for status change notification", catErr.Message)
	assert.Empty(t, f.transport.Sent())
}

func TestSend_ForeignLead(t *testing.T) {
	f := newFixture(t)
	ownerA := f.owner("a@example.com")
	ownerB := f.owner("b@example.com")
	leadB := f.lead(t, ownerB, "Bianca")

	_, err := f.notifications.Send(context.Background(), ownerA, types.NotificationNewLead, leadB.ID, NotificationContext{})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendTest_IgnoresPreference(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerWith("quiet@example.com", func(s *models.UserSettings) {
		s.EmailNotifications = false
	})

	ok := f.notifications.SendTest(context.Background(), owner)
	require.True(t, ok)

	sent := f.transport.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "🎉 New Lead: Test Lead - wedding", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, testBaseURL+"/dashboard")
	assert.Zero(t, f.store.LeadCount())

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, EmailTypeTest, logs[0].EmailType)
	assert.Nil(t, logs[0].LeadID)
}

func TestListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner("owner@example.com")
	other := f.owner("other@example.com")
	lead := f.lead(t, owner, "Jane")

	f.notifications.OnLeadCreated(ctx, lead)
	f.notifications.OnStatusChanged(ctx, lead, types.StatusNew, types.StatusContacted)

	list, err := f.notifications.List(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, types.NotificationStatusChange, list[0].Type, "newest first")

	err = f.notifications.MarkRead(ctx, other, list[0].ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, f.notifications.MarkRead(ctx, owner, list[0].ID))

	unread, err := f.notifications.List(ctx, owner, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, types.NotificationNewLead, unread[0].Type)
}

func TestDashboardURL(t *testing.T) {
	svc := NewNotificationService(nil, nil, nil, nil, nil, "https://example.com/")
	assert.Equal(t, "https://example.com/dashboard/leads/abc", svc.DashboardURL("abc"))
	assert.False(t, strings.Contains(svc.DashboardURL("abc"), "//dashboard"))
}
