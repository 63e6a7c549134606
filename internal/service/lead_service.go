package service

import (
	"context"
	"fmt"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
)

// recentLeadsLimit is the number of leads shown on the dashboard
const recentLeadsLimit = 10

// LeadService handles owner-scoped lead operations and the activity log
type LeadService struct {
	leads      LeadRepository
	activities ActivityRepository
	drafts     DraftRepository
	notifier   LeadNotifier
}

// NewLeadService creates a new lead service. notifier may be nil.
func NewLeadService(
	leads LeadRepository,
	activities ActivityRepository,
	drafts DraftRepository,
	notifier LeadNotifier,
) *LeadService {
	return &LeadService{
		leads:      leads,
		activities: activities,
		drafts:     drafts,
		notifier:   notifier,
	}
}

// LeadDetail is a lead together with its activity log
type LeadDetail struct {
	Lead       *models.Lead           `json:"lead"`
	Activities []*models.LeadActivity `json:"activities"`
}

// CreateLead inserts a lead. Status and priority always start as new/medium.
func (s *LeadService) CreateLead(ctx context.Context, ownerID string, fields models.LeadFields) (*models.Lead, error) {
	lead, err := s.leads.Create(ctx, ownerID, fields)
	if err != nil {
		return nil, apperrors.NewStoreError("create lead", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"lead_id": lead.ID,
		"user_id": ownerID,
		"source":  lead.Source,
	}).Info("lead created")

	return lead, nil
}

// GetLead returns a lead of the owner. Leads of other owners are reported
// exactly like missing ones.
func (s *LeadService) GetLead(ctx context.Context, ownerID, leadID string) (*models.Lead, error) {
	lead, err := s.leads.Get(ctx, ownerID, leadID)
	if err != nil {
		return nil, storeError("Lead", "get lead", err)
	}
	return lead, nil
}

// GetLeadWithActivities returns a lead and its activities, newest first
func (s *LeadService) GetLeadWithActivities(ctx context.Context, ownerID, leadID string) (*LeadDetail, error) {
	lead, err := s.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return nil, err
	}

	activities, err := s.activities.ListByLead(ctx, ownerID, leadID)
	if err != nil {
		return nil, apperrors.NewStoreError("list activities", err)
	}

	return &LeadDetail{Lead: lead, Activities: activities}, nil
}

// ListLeads returns the owner's leads newest first
func (s *LeadService) ListLeads(ctx context.Context, ownerID string, filter models.LeadFilter) ([]*models.Lead, error) {
	leads, err := s.leads.List(ctx, ownerID, filter)
	if err != nil {
		return nil, apperrors.NewStoreError("list leads", err)
	}
	return leads, nil
}

// UpdateLead applies a partial update. When the status changes, one
// status_change activity is appended and the owner is notified; failures of
// either are logged and do not fail the update.
func (s *LeadService) UpdateLead(ctx context.Context, ownerID, leadID string, update models.LeadUpdate) (*models.Lead, error) {
	if update.Empty() {
		return nil, apperrors.NewValidationError("Validation failed",
			[]string{"body: at least one field must be provided"})
	}

	lead, previous, err := s.leads.Update(ctx, ownerID, leadID, update)
	if err != nil {
		return nil, storeError("Lead", "update lead", err)
	}

	if update.Status == nil || *update.Status == previous {
		return lead, nil
	}

	// The update is committed; a client hang-up must not drop the follow-ups.
	ctx = context.WithoutCancel(ctx)
	s.recordStatusChange(ctx, lead, previous, *update.Status, update.Notes)
	if s.notifier != nil {
		s.notifier.OnStatusChanged(ctx, lead, previous, *update.Status)
	}

	return lead, nil
}

func (s *LeadService) recordStatusChange(ctx context.Context, lead *models.Lead, from, to types.LeadStatus, notes *string) {
	metadata := map[string]interface{}{
		"old_status": string(from),
		"new_status": string(to),
	}
	if notes != nil {
		metadata["notes"] = *notes
	}

	activity := &models.LeadActivity{
		LeadID:       lead.ID,
		UserID:       lead.UserID,
		ActivityType: types.ActivityStatusChange,
		Description:  fmt.Sprintf("Status changed from %s to %s", from, to),
		Metadata:     metadata,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("lead_id", lead.ID).
			Error("failed to record status change activity")
	}
}

// Stats summarises the owner's pipeline for the dashboard
func (s *LeadService) Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	total, err := s.leads.Count(ctx, ownerID, "")
	if err != nil {
		return nil, apperrors.NewStoreError("count leads", err)
	}
	fresh, err := s.leads.Count(ctx, ownerID, types.StatusNew)
	if err != nil {
		return nil, apperrors.NewStoreError("count leads", err)
	}
	drafts, err := s.drafts.Count(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStoreError("count drafts", err)
	}
	recent, err := s.leads.List(ctx, ownerID, models.LeadFilter{Limit: recentLeadsLimit})
	if err != nil {
		return nil, apperrors.NewStoreError("list leads", err)
	}

	return &models.DashboardStats{
		TotalLeads:  total,
		NewLeads:    fresh,
		TotalDrafts: drafts,
		RecentLeads: recent,
	}, nil
}
