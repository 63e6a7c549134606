package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ettore-crm/internal/errors"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/types"
)

func TestGenerate_TwoCompletions(t *testing.T) {
	f := newFixture(t)
	f.generator.Replies = []string{"  Dear Jane,\n\nThank you!  ", `  "A Note About Your Big Day"  `}

	draft, err := f.drafts.Generate(context.Background(), EmailContext{LeadName: "Jane"}, types.TemplateWelcome, nil)
	require.NoError(t, err)

	assert.Equal(t, "Dear Jane,\n\nThank you!", draft.Content)
	assert.Equal(t, "A Note About Your Big Day", draft.Subject)

	reqs := f.generator.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, 0.7, reqs[0].Temperature)
	assert.Equal(t, 500, reqs[0].MaxTokens)
	assert.Contains(t, reqs[0].Prompt, "Jane")
	assert.Equal(t, 0.8, reqs[1].Temperature)
	assert.Equal(t, 20, reqs[1].MaxTokens)
	assert.Contains(t, reqs[1].Prompt, "Return only the subject line")
}

func TestGenerate_FailureIsUpstreamError(t *testing.T) {
	tests := []struct {
		name   string
		failOn int
		calls  int
	}{
		{name: "content call fails", failOn: 1, calls: 1},
		{name: "subject call fails", failOn: 2, calls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.generator.Err = errors.New("503 from provider")
			f.generator.FailOn = tt.failOn

			_, err := f.drafts.Generate(context.Background(), EmailContext{}, types.TemplateWelcome, nil)
			require.Error(t, err)

			catErr := apperrors.Categorize(err)
			assert.Equal(t, apperrors.CategoryUpstream, catErr.Category)
			assert.Equal(t, MsgGenerationFailed, catErr.Message)
			assert.Len(t, f.generator.Requests(), tt.calls, "no retries")
		})
	}
}

func TestCleanSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Plain subject", want: "Plain subject"},
		{in: `  "Quoted"  `, want: "Quoted"},
		{in: `'Single'`, want: "Single"},
		{in: `"'Nested'"`, want: "Nested"},
		{in: "“Curly”", want: "Curly"},
		{in: `"`, want: `"`},
		{in: `Don't "stop"`, want: `Don't "stop"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanSubject(tt.in), "input %q", tt.in)
	}
}

func TestGenerateForLead_SavesByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.ownerWith("owner@example.com", func(s *models.UserSettings) {
		s.BusinessName = strPtr("Lumen Studio")
		s.Services = []string{"photography", " video "}
		s.AITone = models.ToneWarm
		s.Signature = strPtr("Giulia")
	})
	lead := f.lead(t, owner, "Jane")

	result, err := f.drafts.GenerateForLead(ctx, owner, GenerateDraftRequest{LeadID: lead.ID, Save: true})
	require.NoError(t, err)
	require.NotNil(t, result.ID)
	assert.Equal(t, types.TemplateWelcome, result.TemplateType)
	assert.Equal(t, lead.ID, result.LeadID)
	assert.Equal(t, "Your Wedding Inquiry", result.Subject)

	prompt := f.generator.Requests()[0].Prompt
	assert.Contains(t, prompt, "Lumen Studio")
	assert.Contains(t, prompt, "photography, video")
	assert.Contains(t, prompt, "Tone: write in a warm tone.")
	assert.Contains(t, prompt, "Giulia")

	drafts, err := f.drafts.ListDrafts(ctx, owner, &lead.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, *result.ID, drafts[0].ID)
	assert.Equal(t, types.DraftStatusDraft, drafts[0].Status)
	assert.Equal(t, "Jane", drafts[0].LeadName)

	// Manual generation does not notify.
	assert.Empty(t, f.store.NotificationRows())
}

func TestGenerateForLead_WithoutSave(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	result, err := f.drafts.GenerateForLead(context.Background(), owner, GenerateDraftRequest{
		LeadID:       lead.ID,
		TemplateType: types.TemplateFollowUp,
		Save:         false,
	})
	require.NoError(t, err)
	assert.Nil(t, result.ID)
	assert.Equal(t, types.TemplateFollowUp, result.TemplateType)

	drafts, err := f.drafts.ListDrafts(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestGenerateForLead_CustomPrompt(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	_, err := f.drafts.GenerateForLead(context.Background(), owner, GenerateDraftRequest{
		LeadID:       lead.ID,
		TemplateType: types.TemplateCustom,
		CustomPrompt: strPtr("Write two lines to {leadName} about {budget}."),
	})
	require.NoError(t, err)

	prompt := f.generator.Requests()[0].Prompt
	assert.Contains(t, prompt, "Write two lines to Jane about your budget.")
	assert.NotContains(t, prompt, "Keep it concise")
}

func TestGenerateForLead_ForeignLead(t *testing.T) {
	f := newFixture(t)
	ownerA := f.owner("a@example.com")
	ownerB := f.owner("b@example.com")
	leadB := f.lead(t, ownerB, "Bianca")

	_, err := f.drafts.GenerateForLead(context.Background(), ownerA, GenerateDraftRequest{LeadID: leadB.ID, Save: true})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, f.generator.Requests())
}

func TestGenerateForLead_SaveFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")
	f.store.FailDraftCreate = errors.New("constraint violation")

	_, err := f.drafts.GenerateForLead(context.Background(), owner, GenerateDraftRequest{LeadID: lead.ID, Save: true})
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryStore, apperrors.Categorize(err).Category)
}

func TestBuildContext_OwnerNameFallbacks(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUserWithoutSettings("giulia.rossi@example.com")
	lead := f.lead(t, owner, "Jane")

	c := f.drafts.BuildContext(context.Background(), lead)
	assert.Equal(t, "giulia.rossi", c.UserName)
	assert.Equal(t, "wedding", c.EventType)
	assert.Equal(t, "2025-09-20", c.EventDate)
	assert.Empty(t, c.UserBusinessName)
}

func TestAutoDraft_SavesAndNotifies(t *testing.T) {
	f := newFixture(t)
	owner := f.owner("owner@example.com")
	lead := f.lead(t, owner, "Jane")

	draft, err := f.drafts.AutoDraft(context.Background(), lead)
	require.NoError(t, err)
	assert.Equal(t, types.TemplateWelcome, draft.TemplateType)

	rows := f.store.NotificationRows()
	require.Len(t, rows, 1)
	assert.Equal(t, types.NotificationDraftGenerated, rows[0].Type)

	logs := f.store.EmailLogRows()
	require.Len(t, logs, 1)
	assert.Equal(t, "draft_generated", logs[0].EmailType)
}

func TestDraftCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.owner("owner@example.com")
	other := f.owner("other@example.com")
	lead := f.lead(t, owner, "Jane")

	result, err := f.drafts.GenerateForLead(ctx, owner, GenerateDraftRequest{LeadID: lead.ID, Save: true})
	require.NoError(t, err)
	id := *result.ID

	t.Run("empty edit rejected", func(t *testing.T) {
		_, err := f.drafts.UpdateDraft(ctx, owner, id, models.DraftUpdate{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CategoryValidation, apperrors.Categorize(err).Category)
	})

	t.Run("foreign edit is not found", func(t *testing.T) {
		_, err := f.drafts.UpdateDraft(ctx, other, id, models.DraftUpdate{Subject: strPtr("hijack")})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("edit", func(t *testing.T) {
		sent := types.DraftStatusSent
		updated, err := f.drafts.UpdateDraft(ctx, owner, id, models.DraftUpdate{Subject: strPtr("Edited"), Status: &sent})
		require.NoError(t, err)
		assert.Equal(t, "Edited", updated.Subject)
		assert.Equal(t, types.DraftStatusSent, updated.Status)
		assert.Equal(t, result.Content, updated.Content)
	})

	t.Run("delete", func(t *testing.T) {
		assert.True(t, apperrors.IsNotFound(f.drafts.DeleteDraft(ctx, other, id)))
		require.NoError(t, f.drafts.DeleteDraft(ctx, owner, id))
		assert.True(t, apperrors.IsNotFound(f.drafts.DeleteDraft(ctx, owner, id)))
	})
}
