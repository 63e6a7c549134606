// Package types provides common type definitions for the Ettore lead manager.
package types

import "strings"

// LeadStatus represents the pipeline stage of a lead
type LeadStatus string

const (
	// StatusNew is assigned to every freshly ingested lead
	StatusNew LeadStatus = "new"
	// StatusContacted means the professional has replied at least once
	StatusContacted LeadStatus = "contacted"
	// StatusQualified means the lead fits the business
	StatusQualified LeadStatus = "qualified"
	// StatusProposal means a proposal has been sent
	StatusProposal LeadStatus = "proposal"
	// StatusBooked means the lead became a client
	StatusBooked LeadStatus = "booked"
	// StatusLost means the lead will not convert
	StatusLost LeadStatus = "lost"
)

// legacy status names still sent by older integrations
var statusAliases = map[string]LeadStatus{
	"proposal_sent": StatusProposal,
	"won":           StatusBooked,
}

// LeadStatuses lists the canonical statuses in pipeline order.
func LeadStatuses() []LeadStatus {
	return []LeadStatus{StatusNew, StatusContacted, StatusQualified, StatusProposal, StatusBooked, StatusLost}
}

// AcceptedStatusNames returns canonical status names plus their aliases.
func AcceptedStatusNames() []string {
	names := make([]string, 0, len(statusAliases)+6)
	for _, s := range LeadStatuses() {
		names = append(names, string(s))
	}
	for alias := range statusAliases {
		names = append(names, alias)
	}
	return names
}

// NormalizeStatus maps an accepted status name to its canonical form.
// Unknown names are returned unchanged with ok=false.
func NormalizeStatus(s string) (LeadStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[s]; ok {
		return alias, true
	}
	for _, status := range LeadStatuses() {
		if string(status) == s {
			return status, true
		}
	}
	return LeadStatus(s), false
}

// Priority represents how urgently a lead should be handled
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NotificationType identifies one of the three notification kinds
type NotificationType string

const (
	// NotificationNewLead fires when a lead is ingested
	NotificationNewLead NotificationType = "new_lead"
	// NotificationStatusChange fires when a lead moves to another status
	NotificationStatusChange NotificationType = "status_change"
	// NotificationDraftGenerated fires when an AI draft is ready for review
	NotificationDraftGenerated NotificationType = "draft_generated"
)

// TemplateType selects the prompt used by the draft generator
type TemplateType string

const (
	TemplateWelcome      TemplateType = "welcome"
	TemplateFollowUp     TemplateType = "follow_up"
	TemplateProposal     TemplateType = "proposal"
	TemplateAvailability TemplateType = "availability"
	TemplateCustom       TemplateType = "custom"
)

// DraftStatus represents the lifecycle of an email draft
type DraftStatus string

const (
	DraftStatusDraft DraftStatus = "draft"
	DraftStatusSent  DraftStatus = "sent"
)

// EmailStatus records the outcome of a notification email attempt
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// ActivityStatusChange is the activity type written on status transitions
const ActivityStatusChange = "status_change"

// Lead sources
const (
	SourceWebhook     = "webhook"
	SourceWebhookTest = "webhook_test"
	SourceManual      = "manual"
)
