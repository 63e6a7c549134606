package models

import (
	"time"

	"github.com/ettore-crm/internal/types"
)

// Lead is a prospective client inquiry owned by exactly one user
type Lead struct {
	ID          string           `json:"id" db:"id"`
	UserID      string           `json:"userId" db:"user_id"`
	Name        string           `json:"name" db:"name"`
	Email       string           `json:"email" db:"email"`
	Phone       *string          `json:"phone,omitempty" db:"phone"`
	EventType   *string          `json:"eventType,omitempty" db:"event_type"`
	EventDate   *string          `json:"eventDate,omitempty" db:"event_date"`
	BudgetRange *string          `json:"budgetRange,omitempty" db:"budget_range"`
	Message     *string          `json:"message,omitempty" db:"message"`
	Status      types.LeadStatus `json:"status" db:"status"`
	Priority    types.Priority   `json:"priority" db:"priority"`
	Source      string           `json:"source" db:"source"`
	Notes       *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// LeadFields are the caller-supplied fields of a new lead. Status and
// priority are never taken from the caller.
type LeadFields struct {
	Name        string
	Email       string
	Phone       *string
	EventType   *string
	EventDate   *string
	BudgetRange *string
	Message     *string
	Source      string
	Notes       *string
}

// LeadUpdate is a partial update; nil fields are left unchanged.
type LeadUpdate struct {
	Status   *types.LeadStatus
	Priority *types.Priority
	Notes    *string
}

// Empty reports whether the update would change nothing
func (u LeadUpdate) Empty() bool {
	return u.Status == nil && u.Priority == nil && u.Notes == nil
}

// LeadFilter narrows ListLeads results
type LeadFilter struct {
	// Status "" or "all" disables the filter.
	Status string
	// Search is a case-insensitive substring over name, email and event type.
	Search string
	Limit  int
}

// LeadActivity is an append-only audit entry for a lead
type LeadActivity struct {
	ID           string                 `json:"id" db:"id"`
	LeadID       string                 `json:"leadId" db:"lead_id"`
	UserID       string                 `json:"userId" db:"user_id"`
	ActivityType string                 `json:"activityType" db:"activity_type"`
	Description  string                 `json:"description" db:"description"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time              `json:"createdAt" db:"created_at"`
}

// DashboardStats summarises an owner's pipeline
type DashboardStats struct {
	TotalLeads  int     `json:"totalLeads"`
	NewLeads    int     `json:"newLeads"`
	TotalDrafts int     `json:"totalDrafts"`
	RecentLeads []*Lead `json:"recentLeads"`
}
