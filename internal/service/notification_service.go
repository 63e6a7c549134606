package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ettore-crm/internal/email"
	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/types"
)

// Notification titles shown in the dashboard
const (
	TitleNewLead        = "New Lead Received"
	TitleStatusChange   = "Lead Status Updated"
	TitleDraftGenerated = "AI Draft Ready"
)

// defaultNotificationLimit bounds notification listings
const defaultNotificationLimit = 50

// EmailTypeTest marks email log rows written by SendTest
const EmailTypeTest = "test"

// NotificationContext carries the kind-specific part of a notification
type NotificationContext struct {
	OldStatus types.LeadStatus
	NewStatus types.LeadStatus
	DraftID   string
}

// NotificationService creates in-app notifications and emails the owner
type NotificationService struct {
	users         UserRepository
	settings      SettingsRepository
	leads         LeadRepository
	notifications NotificationRepository
	transport     email.Transport
	baseURL       string
}

// NewNotificationService creates a new notification service. baseURL is the
// public dashboard origin used for deep links.
func NewNotificationService(
	users UserRepository,
	settings SettingsRepository,
	leads LeadRepository,
	notifications NotificationRepository,
	transport email.Transport,
	baseURL string,
) *NotificationService {
	return &NotificationService{
		users:         users,
		settings:      settings,
		leads:         leads,
		notifications: notifications,
		transport:     transport,
		baseURL:       strings.TrimRight(baseURL, "/"),
	}
}

// DashboardURL returns the deep link of a lead
func (s *NotificationService) DashboardURL(leadID string) string {
	return fmt.Sprintf("%s/dashboard/leads/%s", s.baseURL, leadID)
}

// Notify emails the owner about a lead event and records the attempt in the
// email log. It returns true without sending when email notifications are
// disabled or no settings exist. Failures are logged; the result only
// reports whether the transport accepted the message.
func (s *NotificationService) Notify(ctx context.Context, kind types.NotificationType, ownerID string, leadID *string, nctx NotificationContext) bool {
	var lead *models.Lead
	if leadID != nil {
		l, err := s.leads.Get(ctx, ownerID, *leadID)
		if err != nil {
			logging.FromContext(ctx).WithError(err).WithField("lead_id", *leadID).
				Error("failed to load lead for notification")
			return false
		}
		lead = l
	}
	return s.notify(ctx, kind, ownerID, lead, nctx)
}

func (s *NotificationService) notify(ctx context.Context, kind types.NotificationType, ownerID string, lead *models.Lead, nctx NotificationContext) bool {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id":           ownerID,
		"notification_type": string(kind),
	})

	settings, err := s.settings.Get(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !settings.EmailNotifications) {
		logger.Debug("email notifications disabled")
		return true
	}
	if err != nil {
		logger.WithError(err).Error("failed to load settings for notification")
		return false
	}

	var leadID *string
	if lead != nil {
		id := lead.ID
		leadID = &id
	}
	return s.deliver(ctx, logger, delivery{
		kind:      kind,
		emailType: string(kind),
		ownerID:   ownerID,
		settings:  settings,
		lead:      lead,
		logLeadID: leadID,
		nctx:      nctx,
	})
}

// delivery is one rendered-and-sent notification email
type delivery struct {
	kind      types.NotificationType
	emailType string
	ownerID   string
	settings  *models.UserSettings
	lead      *models.Lead
	logLeadID *string
	nctx      NotificationContext
}

// deliver renders, sends and logs one email. It always writes an email log
// row once the message was handed to the transport.
func (s *NotificationService) deliver(ctx context.Context, logger *logging.Logger, d delivery) bool {
	owner, err := s.users.GetByID(ctx, d.ownerID)
	if err != nil {
		logger.WithError(err).Error("failed to load owner for notification")
		return false
	}

	view := notificationView{
		UserName:     models.OwnerName(d.settings, owner.Email),
		OldStatus:    string(d.nctx.OldStatus),
		NewStatus:    string(d.nctx.NewStatus),
		OldEmoji:     StatusEmoji(d.nctx.OldStatus),
		NewEmoji:     StatusEmoji(d.nctx.NewStatus),
		DashboardURL: s.baseURL + "/dashboard",
	}
	if d.settings != nil && d.settings.BusinessName != nil {
		view.BusinessName = *d.settings.BusinessName
	}
	if d.lead != nil {
		view.LeadName = d.lead.Name
		view.LeadEmail = d.lead.Email
		if d.logLeadID != nil {
			view.DashboardURL = s.DashboardURL(d.lead.ID)
		}
		if d.lead.EventType != nil {
			view.EventType = *d.lead.EventType
		}
		if d.lead.EventDate != nil {
			view.EventDate = FormatEventDate(*d.lead.EventDate)
		}
	}

	rendered, err := renderNotification(d.kind, view)
	if err != nil {
		logger.WithError(err).Error("failed to render notification")
		return false
	}

	sendErr := s.transport.Send(ctx, email.Message{
		To:      owner.Email,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	status := types.EmailStatusSent
	if sendErr != nil {
		status = types.EmailStatusFailed
		logger.WithError(sendErr).Warn("notification email failed")
	}

	entry := &models.EmailLog{
		UserID:    d.ownerID,
		LeadID:    d.logLeadID,
		EmailType: d.emailType,
		Recipient: owner.Email,
		Subject:   rendered.Subject,
		Status:    status,
	}
	if err := s.notifications.LogEmail(ctx, entry); err != nil {
		logger.WithError(err).Error("failed to write email log")
	}

	return sendErr == nil
}

// OnLeadCreated records a new_lead notification and emails the owner
func (s *NotificationService) OnLeadCreated(ctx context.Context, lead *models.Lead) {
	s.createNotification(ctx, lead, types.NotificationNewLead, TitleNewLead,
		fmt.Sprintf("New lead from %s (%s)", lead.Name, lead.Email))
	s.notify(ctx, types.NotificationNewLead, lead.UserID, lead, NotificationContext{})
}

// OnStatusChanged records a status_change notification and emails the owner
func (s *NotificationService) OnStatusChanged(ctx context.Context, lead *models.Lead, oldStatus, newStatus types.LeadStatus) {
	s.createNotification(ctx, lead, types.NotificationStatusChange, TitleStatusChange,
		fmt.Sprintf("%s status changed to %s", lead.Name, newStatus))
	s.notify(ctx, types.NotificationStatusChange, lead.UserID, lead, NotificationContext{
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

// OnDraftGenerated records a draft_generated notification and emails the owner
func (s *NotificationService) OnDraftGenerated(ctx context.Context, lead *models.Lead, draft *models.EmailDraft) {
	s.createNotification(ctx, lead, types.NotificationDraftGenerated, TitleDraftGenerated,
		fmt.Sprintf("A %s draft for %s is ready for review", strings.ReplaceAll(string(draft.TemplateType), "_", "-"), lead.Name))
	s.notify(ctx, types.NotificationDraftGenerated, lead.UserID, lead, NotificationContext{DraftID: draft.ID})
}

func (s *NotificationService) createNotification(ctx context.Context, lead *models.Lead, kind types.NotificationType, title, message string) {
	leadID := lead.ID
	n := &models.Notification{
		UserID:  lead.UserID,
		LeadID:  &leadID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"lead_id":           lead.ID,
			"notification_type": string(kind),
		}).Error("failed to create notification")
	}
}

// Send is the explicit notification request of the dashboard. The lead must
// belong to the owner.
func (s *NotificationService) Send(ctx context.Context, ownerID string, kind types.NotificationType, leadID string, nctx NotificationContext) (bool, error) {
	if kind == types.NotificationStatusChange && (nctx.OldStatus == "" || nctx.NewStatus == "") {
		return false, apperrors.NewValidationError("Old and new status required for status change notification", nil)
	}

	lead, err := s.leads.Get(ctx, ownerID, leadID)
	if err != nil {
		return false, storeError("Lead", "get lead", err)
	}

	return s.notify(ctx, kind, ownerID, lead, nctx), nil
}

// SendTest emails the owner a sample new_lead notification, regardless of
// the email_notifications setting. The sample lead is not stored.
func (s *NotificationService) SendTest(ctx context.Context, ownerID string) bool {
	logger := logging.FromContext(ctx).WithField("user_id", ownerID)

	settings, err := s.settings.Get(ctx, ownerID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.WithError(err).Error("failed to load settings for test notification")
		return false
	}

	eventType := "wedding"
	eventDate := "2024-12-31"
	return s.deliver(ctx, logger, delivery{
		kind:      types.NotificationNewLead,
		emailType: EmailTypeTest,
		ownerID:   ownerID,
		settings:  settings,
		lead: &models.Lead{
			UserID:    ownerID,
			Name:      "Test Lead",
			Email:     "test@example.com",
			EventType: &eventType,
			EventDate: &eventDate,
			Source:    types.SourceWebhookTest,
		},
	})
}

// List returns the owner's notifications newest first
func (s *NotificationService) List(ctx context.Context, ownerID string, unreadOnly bool) ([]*models.Notification, error) {
	list, err := s.notifications.List(ctx, ownerID, unreadOnly, defaultNotificationLimit)
	if err != nil {
		return nil, apperrors.NewStoreError("list notifications", err)
	}
	return list, nil
}

// MarkRead marks one of the owner's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, ownerID, id string) error {
	if err := s.notifications.MarkRead(ctx, ownerID, id); err != nil {
		return storeError("Notification", "mark notification read", err)
	}
	return nil
}
