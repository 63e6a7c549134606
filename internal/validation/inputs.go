package validation

import (
	"strings"

	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
)

// WebhookLeadInput is a lead submitted by an external form
type WebhookLeadInput struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	UserID      string  `json:"user_id"`
	APIKey      string  `json:"api_key"`
	Phone       *string `json:"phone,omitempty"`
	EventDate   *string `json:"event_date,omitempty"`
	EventType   *string `json:"event_type,omitempty"`
	BudgetRange *string `json:"budget_range,omitempty"`
	Message     *string `json:"message,omitempty"`
	Source      string  `json:"source,omitempty"`
}

// LeadFields returns the storable part of the submission
func (in *WebhookLeadInput) LeadFields() models.LeadFields {
	return models.LeadFields{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		EventDate:   in.EventDate,
		EventType:   in.EventType,
		BudgetRange: in.BudgetRange,
		Message:     in.Message,
		Source:      in.Source,
	}
}

// ManualLeadInput is a lead typed in by the owner
type ManualLeadInput struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	EventDate   *string `json:"event_date,omitempty"`
	EventType   *string `json:"event_type,omitempty"`
	BudgetRange *string `json:"budget_range,omitempty"`
	Message     *string `json:"message,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// LeadFields returns the storable part of the submission
func (in *ManualLeadInput) LeadFields() models.LeadFields {
	return models.LeadFields{
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		EventDate:   in.EventDate,
		EventType:   in.EventType,
		BudgetRange: in.BudgetRange,
		Message:     in.Message,
		Notes:       in.Notes,
		Source:      types.SourceManual,
	}
}

// LeadUpdateInput is a partial lead update
type LeadUpdateInput struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Notes    *string `json:"notes,omitempty"`

	status   *types.LeadStatus
	priority *types.Priority
}

// Update returns the canonical partial update
func (in *LeadUpdateInput) Update() models.LeadUpdate {
	return models.LeadUpdate{Status: in.status, Priority: in.priority, Notes: in.Notes}
}

// GenerateDraftInput asks for an AI draft for one lead
type GenerateDraftInput struct {
	LeadID       string             `json:"leadId"`
	TemplateType types.TemplateType `json:"templateType"`
	CustomPrompt *string            `json:"customPrompt,omitempty"`
	SaveDraft    *bool              `json:"saveDraft,omitempty"`
}

// ShouldSave reports whether the generated draft is persisted
func (in *GenerateDraftInput) ShouldSave() bool {
	return in.SaveDraft == nil || *in.SaveDraft
}

// DraftEditInput edits a stored draft
type DraftEditInput struct {
	Subject *string            `json:"subject,omitempty"`
	Content *string            `json:"content,omitempty"`
	Status  *types.DraftStatus `json:"status,omitempty"`
}

// Update returns the storable partial edit
func (in *DraftEditInput) Update() models.DraftUpdate {
	return models.DraftUpdate{Subject: in.Subject, Content: in.Content, Status: in.Status}
}

// NotificationContextInput carries kind-specific notification data
type NotificationContextInput struct {
	OldStatus string `json:"oldStatus,omitempty"`
	NewStatus string `json:"newStatus,omitempty"`
	DraftID   string `json:"draftId,omitempty"`
}

// NotificationInput asks for an owner notification about a lead
type NotificationInput struct {
	Type    types.NotificationType   `json:"type"`
	LeadID  string                   `json:"leadId"`
	Context NotificationContextInput `json:"context"`
}

// SettingsInput is a partial settings update
type SettingsInput struct {
	BusinessName       *string   `json:"businessName,omitempty"`
	DisplayName        *string   `json:"displayName,omitempty"`
	Services           *[]string `json:"services,omitempty"`
	AITone             *string   `json:"aiTone,omitempty"`
	AICreativity       *float64  `json:"aiCreativity,omitempty"`
	AutoGenerateDrafts *bool     `json:"autoGenerateDrafts,omitempty"`
	CustomInstructions *string   `json:"customInstructions,omitempty"`
	Signature          *string   `json:"signature,omitempty"`
	EmailNotifications *bool     `json:"emailNotifications,omitempty"`
}

// Apply merges the update into existing settings
func (in *SettingsInput) Apply(s *models.UserSettings) {
	if in.BusinessName != nil {
		s.BusinessName = nilIfEmpty(*in.BusinessName)
	}
	if in.DisplayName != nil {
		s.DisplayName = nilIfEmpty(*in.DisplayName)
	}
	if in.Services != nil {
		s.Services = append([]string{}, (*in.Services)...)
	}
	if in.AITone != nil {
		s.AITone = *in.AITone
	}
	if in.AICreativity != nil {
		s.AICreativity = *in.AICreativity
	}
	if in.AutoGenerateDrafts != nil {
		s.AutoGenerateDrafts = *in.AutoGenerateDrafts
	}
	if in.CustomInstructions != nil {
		s.CustomInstructions = nilIfEmpty(*in.CustomInstructions)
	}
	if in.Signature != nil {
		s.Signature = nilIfEmpty(*in.Signature)
	}
	if in.EmailNotifications != nil {
		s.EmailNotifications = *in.EmailNotifications
	}
}

// CredentialsInput is used for both sign-up and login
type CredentialsInput struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName,omitempty"`
}

// WebhookTestInput identifies the account whose webhook is tested
type WebhookTestInput struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// WebhookLead validates a webhook submission. Missing source defaults to
// "webhook".
func (v *Validator) WebhookLead(raw []byte) (*WebhookLeadInput, Errors) {
	var in WebhookLeadInput
	if errs := v.decode(ShapeWebhookLead, raw, &in); errs != nil {
		return nil, errs
	}
	in.Email = strings.ToLower(in.Email)
	in.UserID = strings.ToLower(in.UserID)
	in.Phone = dropEmpty(in.Phone)
	in.EventDate = dropEmpty(in.EventDate)
	in.EventType = dropEmpty(in.EventType)
	in.BudgetRange = dropEmpty(in.BudgetRange)
	in.Message = dropEmpty(in.Message)
	if in.Source == "" {
		in.Source = types.SourceWebhook
	}
	return &in, nil
}

// ManualLead validates a lead created from the dashboard
func (v *Validator) ManualLead(raw []byte) (*ManualLeadInput, Errors) {
	var in ManualLeadInput
	if errs := v.decode(ShapeManualLead, raw, &in); errs != nil {
		return nil, errs
	}
	in.Email = strings.ToLower(in.Email)
	in.Phone = dropEmpty(in.Phone)
	in.EventDate = dropEmpty(in.EventDate)
	in.EventType = dropEmpty(in.EventType)
	in.BudgetRange = dropEmpty(in.BudgetRange)
	in.Message = dropEmpty(in.Message)
	in.Notes = dropEmpty(in.Notes)
	return &in, nil
}

// LeadUpdate validates a partial lead update and maps status aliases
func (v *Validator) LeadUpdate(raw []byte) (*LeadUpdateInput, Errors) {
	var in LeadUpdateInput
	if errs := v.decode(ShapeLeadUpdate, raw, &in); errs != nil {
		return nil, errs
	}
	if in.Status != nil {
		status, _ := types.NormalizeStatus(*in.Status)
		in.status = &status
		s := string(status)
		in.Status = &s
	}
	if in.Priority != nil {
		p := types.Priority(*in.Priority)
		in.priority = &p
	}
	if in.status == nil && in.priority == nil && in.Notes == nil {
		return nil, Errors{"body: at least one field must be provided"}
	}
	return &in, nil
}

// GenerateDraft validates a draft generation request
func (v *Validator) GenerateDraft(raw []byte) (*GenerateDraftInput, Errors) {
	var in GenerateDraftInput
	if errs := v.decode(ShapeGenerateDraft, raw, &in); errs != nil {
		return nil, errs
	}
	in.LeadID = strings.ToLower(in.LeadID)
	if in.TemplateType == "" {
		in.TemplateType = types.TemplateWelcome
	}
	in.CustomPrompt = dropEmpty(in.CustomPrompt)
	return &in, nil
}

// DraftEdit validates an edit of a stored draft
func (v *Validator) DraftEdit(raw []byte) (*DraftEditInput, Errors) {
	var in DraftEditInput
	if errs := v.decode(ShapeDraftEdit, raw, &in); errs != nil {
		return nil, errs
	}
	return &in, nil
}

// Notification validates a notification request. status_change requires
// both statuses in the context.
func (v *Validator) Notification(raw []byte) (*NotificationInput, Errors) {
	var in NotificationInput
	if errs := v.decode(ShapeNotification, raw, &in); errs != nil {
		return nil, errs
	}
	in.LeadID = strings.ToLower(in.LeadID)
	if s, ok := types.NormalizeStatus(in.Context.OldStatus); ok {
		in.Context.OldStatus = string(s)
	}
	if s, ok := types.NormalizeStatus(in.Context.NewStatus); ok {
		in.Context.NewStatus = string(s)
	}
	return &in, nil
}

// SettingsUpdate validates a partial settings update
func (v *Validator) SettingsUpdate(raw []byte) (*SettingsInput, Errors) {
	var in SettingsInput
	if errs := v.decode(ShapeSettingsUpdate, raw, &in); errs != nil {
		return nil, errs
	}
	return &in, nil
}

// SignUp validates sign-up credentials
func (v *Validator) SignUp(raw []byte) (*CredentialsInput, Errors) {
	return v.credentials(ShapeSignUp, raw)
}

// Login validates login credentials
func (v *Validator) Login(raw []byte) (*CredentialsInput, Errors) {
	return v.credentials(ShapeLogin, raw)
}

func (v *Validator) credentials(shape Shape, raw []byte) (*CredentialsInput, Errors) {
	var in CredentialsInput
	if errs := v.decode(shape, raw, &in); errs != nil {
		return nil, errs
	}
	in.Email = strings.ToLower(in.Email)
	in.DisplayName = dropEmpty(in.DisplayName)
	return &in, nil
}

// WebhookTest validates a webhook self-test request
func (v *Validator) WebhookTest(raw []byte) (*WebhookTestInput, Errors) {
	var in WebhookTestInput
	if errs := v.decode(ShapeWebhookTest, raw, &in); errs != nil {
		return nil, errs
	}
	return &in, nil
}

func dropEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
