package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/llm"
	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/types"
)

// Completion parameters of the two generation calls
const (
	contentTemperature = 0.7
	contentMaxTokens   = 500
	subjectTemperature = 0.8
	subjectMaxTokens   = 20
)

// MsgGenerationFailed is the client-facing message of every generation failure
const MsgGenerationFailed = "Failed to generate email draft"

// GeneratedDraft is the output of one generation
type GeneratedDraft struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// GenerateDraftRequest asks for a draft for one of the owner's leads
type GenerateDraftRequest struct {
	LeadID       string
	TemplateType types.TemplateType
	CustomPrompt *string
	Save         bool
}

// DraftResult is returned to the dashboard. ID is nil when the draft was
// not saved.
type DraftResult struct {
	ID           *string            `json:"id"`
	Subject      string             `json:"subject"`
	Content      string             `json:"content"`
	TemplateType types.TemplateType `json:"templateType"`
	LeadID       string             `json:"leadId"`
}

// DraftService generates reply drafts with the text-generation API and
// manages stored drafts
type DraftService struct {
	generator TextGenerator
	leads     LeadRepository
	settings  SettingsRepository
	users     UserRepository
	drafts    DraftRepository
	notifier  LeadNotifier
}

// NewDraftService creates a new draft service. notifier may be nil.
func NewDraftService(
	generator TextGenerator,
	leads LeadRepository,
	settings SettingsRepository,
	users UserRepository,
	drafts DraftRepository,
	notifier LeadNotifier,
) *DraftService {
	return &DraftService{
		generator: generator,
		leads:     leads,
		settings:  settings,
		users:     users,
		drafts:    drafts,
		notifier:  notifier,
	}
}

// Generate fills the prompt, asks for the body and then for a subject line.
// Failures are not retried.
func (s *DraftService) Generate(ctx context.Context, c EmailContext, templateType types.TemplateType, customPrompt *string) (*GeneratedDraft, error) {
	content, err := s.generator.Complete(ctx, llm.CompletionRequest{
		Prompt:      BuildPrompt(c, templateType, customPrompt),
		Temperature: contentTemperature,
		MaxTokens:   contentMaxTokens,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError(MsgGenerationFailed, err)
	}

	subject, err := s.generator.Complete(ctx, llm.CompletionRequest{
		Prompt:      SubjectPrompt(c, templateType),
		Temperature: subjectTemperature,
		MaxTokens:   subjectMaxTokens,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamError(MsgGenerationFailed, err)
	}

	return &GeneratedDraft{
		Subject: CleanSubject(subject),
		Content: strings.TrimSpace(content),
	}, nil
}

// CleanSubject trims whitespace and wrapping quotes from a generated subject
func CleanSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for len(subject) >= 2 {
		trimmed := strings.TrimSpace(trimPair(subject))
		if trimmed == subject {
			break
		}
		subject = trimmed
	}
	return subject
}

func trimPair(s string) string {
	for _, pair := range [][2]string{{`"`, `"`}, {"'", "'"}, {"“", "”"}, {"‘", "’"}} {
		if len(s) > len(pair[0])+len(pair[1])-1 && strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return s[len(pair[0]) : len(s)-len(pair[1])]
		}
	}
	return s
}

// SaveDraft stores a generated draft. It is a separate step from Generate.
func (s *DraftService) SaveDraft(ctx context.Context, ownerID, leadID string, templateType types.TemplateType, g *GeneratedDraft) (*models.EmailDraft, error) {
	draft := &models.EmailDraft{
		UserID:       ownerID,
		LeadID:       leadID,
		Subject:      g.Subject,
		Content:      g.Content,
		TemplateType: templateType,
		Status:       types.DraftStatusDraft,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, apperrors.NewStoreError("save draft", err)
	}
	return draft, nil
}

// BuildContext assembles the prompt context of a lead from the owner's
// settings and account. Missing settings fall back to defaults.
func (s *DraftService) BuildContext(ctx context.Context, lead *models.Lead) EmailContext {
	logger := logging.FromContext(ctx).WithField("lead_id", lead.ID)

	settings, err := s.settings.Get(ctx, lead.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.WithError(err).Warn("failed to load settings for draft")
		}
		settings = nil
	}

	var ownerEmail string
	if owner, err := s.users.GetByID(ctx, lead.UserID); err == nil {
		ownerEmail = owner.Email
	} else {
		logger.WithError(err).Warn("failed to load owner for draft")
	}

	c := EmailContext{
		LeadName:  lead.Name,
		LeadEmail: lead.Email,
		EventType: deref(lead.EventType),
		EventDate: deref(lead.EventDate),
		Budget:    deref(lead.BudgetRange),
		Message:   deref(lead.Message),
		UserName:  models.OwnerName(settings, ownerEmail),
	}
	if settings != nil {
		c.UserBusinessName = deref(settings.BusinessName)
		c.UserServices = settings.Services
		c.Tone = settings.AITone
		c.CustomInstructions = deref(settings.CustomInstructions)
		c.Signature = deref(settings.Signature)
	}
	return c
}

// GenerateForLead generates a draft for one of the owner's leads and saves
// it unless asked not to.
func (s *DraftService) GenerateForLead(ctx context.Context, ownerID string, req GenerateDraftRequest) (*DraftResult, error) {
	lead, err := s.leads.Get(ctx, ownerID, req.LeadID)
	if err != nil {
		return nil, storeError("Lead", "get lead", err)
	}

	templateType := req.TemplateType
	if templateType == "" {
		templateType = types.TemplateWelcome
	}

	generated, err := s.Generate(ctx, s.BuildContext(ctx, lead), templateType, req.CustomPrompt)
	if err != nil {
		return nil, err
	}

	result := &DraftResult{
		Subject:      generated.Subject,
		Content:      generated.Content,
		TemplateType: templateType,
		LeadID:       lead.ID,
	}
	if req.Save {
		draft, err := s.SaveDraft(ctx, ownerID, lead.ID, templateType, generated)
		if err != nil {
			return nil, err
		}
		result.ID = &draft.ID
	}

	return result, nil
}

// AutoDraft generates and saves a welcome draft for a freshly ingested lead
// and notifies the owner. Callers treat errors as non-fatal.
func (s *DraftService) AutoDraft(ctx context.Context, lead *models.Lead) (*models.EmailDraft, error) {
	generated, err := s.Generate(ctx, s.BuildContext(ctx, lead), types.TemplateWelcome, nil)
	if err != nil {
		return nil, err
	}
	draft, err := s.SaveDraft(ctx, lead.UserID, lead.ID, types.TemplateWelcome, generated)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.OnDraftGenerated(ctx, lead, draft)
	}
	return draft, nil
}

// ListDrafts returns the owner's drafts, optionally of one lead
func (s *DraftService) ListDrafts(ctx context.Context, ownerID string, leadID *string) ([]*models.EmailDraft, error) {
	drafts, err := s.drafts.List(ctx, ownerID, leadID)
	if err != nil {
		return nil, apperrors.NewStoreError("list drafts", err)
	}
	return drafts, nil
}

// UpdateDraft edits one of the owner's drafts
func (s *DraftService) UpdateDraft(ctx context.Context, ownerID, id string, update models.DraftUpdate) (*models.EmailDraft, error) {
	if update.Subject == nil && update.Content == nil && update.Status == nil {
		return nil, apperrors.NewValidationError("Validation failed",
			[]string{"body: at least one field must be provided"})
	}
	draft, err := s.drafts.Update(ctx, ownerID, id, update)
	if err != nil {
		return nil, storeError("Draft", "update draft", err)
	}
	return draft, nil
}

// DeleteDraft removes one of the owner's drafts
func (s *DraftService) DeleteDraft(ctx context.Context, ownerID, id string) error {
	if err := s.drafts.Delete(ctx, ownerID, id); err != nil {
		return storeError("Draft", "delete draft", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
