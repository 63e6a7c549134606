package models

import (
	"time"

	"github.com/ettore-crm/internal/types"
)

// Notification is an in-app message shown to the owner
type Notification struct {
	ID        string                 `json:"id" db:"id"`
	UserID    string                 `json:"userId" db:"user_id"`
	LeadID    *string                `json:"leadId,omitempty" db:"lead_id"`
	Type      types.NotificationType `json:"type" db:"type"`
	Title     string                 `json:"title" db:"title"`
	Message   string                 `json:"message" db:"message"`
	IsRead    bool                   `json:"isRead" db:"is_read"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
}

// EmailLog records one notification email attempt. Rows are never updated.
type EmailLog struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"userId" db:"user_id"`
	LeadID    *string           `json:"leadId,omitempty" db:"lead_id"`
	EmailType string            `json:"emailType" db:"email_type"`
	Recipient string            `json:"recipient" db:"recipient"`
	Subject   string            `json:"subject" db:"subject"`
	Status    types.EmailStatus `json:"status" db:"status"`
	SentAt    time.Time         `json:"sentAt" db:"sent_at"`
}
