package models

import (
	"time"

	"github.com/ettore-crm/internal/types"
)

// EmailDraft is a generated or edited reply awaiting review
type EmailDraft struct {
	ID           string             `json:"id" db:"id"`
	UserID       string             `json:"userId" db:"user_id"`
	LeadID       string             `json:"leadId" db:"lead_id"`
	Subject      string             `json:"subject" db:"subject"`
	Content      string             `json:"content" db:"content"`
	TemplateType types.TemplateType `json:"templateType" db:"template_type"`
	Status       types.DraftStatus  `json:"status" db:"status"`
	CreatedAt    time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" db:"updated_at"`

	// Populated by list queries joining the lead
	LeadName      string  `json:"leadName,omitempty" db:"lead_name"`
	LeadEmail     string  `json:"leadEmail,omitempty" db:"lead_email"`
	LeadEventType *string `json:"leadEventType,omitempty" db:"lead_event_type"`
}

// DraftUpdate is a partial edit of a draft
type DraftUpdate struct {
	Subject *string
	Content *string
	Status  *types.DraftStatus
}
