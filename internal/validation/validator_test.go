package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ettore-crm/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerID = "6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func body(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWebhookLead_Sanitizes(t *testing.T) {
	v := newTestValidator(t)

	in, errs := v.WebhookLead(body(t, map[string]any{
		"name":       "  Jane Smith ",
		"email":      " JANE@Example.com ",
		"user_id":    strings.ToUpper(ownerID),
		"api_key":    "ettore_key",
		"phone":      "   ",
		"event_type": " wedding ",
		"utm_source": "instagram",
	}))
	require.Empty(t, errs)

	assert.Equal(t, "Jane Smith", in.Name)
	assert.Equal(t, "jane@example.com", in.Email)
	assert.Equal(t, ownerID, in.UserID)
	assert.Nil(t, in.Phone)
	require.NotNil(t, in.EventType)
	assert.Equal(t, "wedding", *in.EventType)
	assert.Equal(t, types.SourceWebhook, in.Source)

	fields := in.LeadFields()
	assert.Equal(t, types.SourceWebhook, fields.Source)
}

func TestWebhookLead_Errors(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name string
		raw  string
		want Errors
	}{
		{
			name: "missing required fields",
			raw:  `{}`,
			want: Errors{"api_key: is required", "email: is required", "name: is required", "user_id: is required"},
		},
		{
			name: "invalid email",
			raw:  `{"name":"Jane","email":"not-an-email","user_id":"` + ownerID + `","api_key":"k"}`,
			want: Errors{"email: must be a valid email address"},
		},
		{
			name: "email without a dot in the domain",
			raw:  `{"name":"Jane","email":"jane@localhost","user_id":"` + ownerID + `","api_key":"k"}`,
			want: Errors{"email: must be a valid email address"},
		},
		{
			name: "blank name",
			raw:  `{"name":"   ","email":"jane@example.com","user_id":"` + ownerID + `","api_key":"k"}`,
			want: Errors{"name: must not be empty"},
		},
		{
			name: "name too long",
			raw:  `{"name":"` + strings.Repeat("a", 101) + `","email":"jane@example.com","user_id":"` + ownerID + `","api_key":"k"}`,
			want: Errors{"name: must be at most 100 characters"},
		},
		{
			name: "wrong types",
			raw:  `{"name":42,"email":"jane@example.com","user_id":"` + ownerID + `","api_key":"k","phone":7}`,
			want: Errors{"name: must be a string", "phone: must be a string"},
		},
		{
			name: "user id is not a uuid",
			raw:  `{"name":"Jane","email":"jane@example.com","user_id":"abc","api_key":"k"}`,
			want: Errors{"user_id: must be a valid UUID"},
		},
		{name: "malformed json", raw: `{"name":`, want: Errors{MsgInvalidBody}},
		{name: "not an object", raw: `["name"]`, want: Errors{MsgInvalidBody}},
		{name: "empty body", raw: ``, want: Errors{MsgInvalidBody}},
		{name: "trailing data", raw: `{} {}`, want: Errors{MsgInvalidBody}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, errs := v.WebhookLead([]byte(tt.raw))
			assert.Nil(t, in)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestLeadName_LengthLimit(t *testing.T) {
	v := newTestValidator(t)

	longest := strings.Repeat("b", 100)
	in, errs := v.WebhookLead(body(t, map[string]any{
		"name": longest, "email": "jane@example.com", "user_id": ownerID, "api_key": "k",
	}))
	require.Empty(t, errs)
	assert.Equal(t, longest, in.Name)

	_, errs = v.ManualLead(body(t, map[string]any{
		"name": longest + "b", "email": "jane@example.com",
	}))
	assert.Equal(t, Errors{"name: must be at most 100 characters"}, errs)
}

func TestLeadUpdate(t *testing.T) {
	v := newTestValidator(t)

	in, errs := v.LeadUpdate([]byte(`{"status":"won","notes":" signed "}`))
	require.Empty(t, errs)
	u := in.Update()
	require.NotNil(t, u.Status)
	assert.Equal(t, types.StatusBooked, *u.Status)
	assert.Equal(t, "signed", *u.Notes)
	assert.Nil(t, u.Priority)

	_, errs = v.LeadUpdate([]byte(`{"status":"archived"}`))
	assert.Equal(t, Errors{"status: must be one of: new, contacted, qualified, proposal, booked, lost, proposal_sent, won"}, errs)

	_, errs = v.LeadUpdate([]byte(`{}`))
	assert.Equal(t, Errors{"body: at least one field must be provided"}, errs)

	_, errs = v.LeadUpdate([]byte(`{"stage":"new"}`))
	assert.Contains(t, errs, "stage: is not allowed")
}

func TestGenerateDraft(t *testing.T) {
	v := newTestValidator(t)

	in, errs := v.GenerateDraft([]byte(`{"leadId":"` + ownerID + `"}`))
	require.Empty(t, errs)
	assert.Equal(t, types.TemplateWelcome, in.TemplateType)
	assert.True(t, in.ShouldSave())
	assert.Nil(t, in.CustomPrompt)

	in, errs = v.GenerateDraft([]byte(`{"leadId":"` + ownerID + `","templateType":"follow_up","saveDraft":false,"customPrompt":"  "}`))
	require.Empty(t, errs)
	assert.Equal(t, types.TemplateFollowUp, in.TemplateType)
	assert.False(t, in.ShouldSave())
	assert.Nil(t, in.CustomPrompt)

	_, errs = v.GenerateDraft([]byte(`{"leadId":"abc","templateType":"poem"}`))
	assert.Equal(t, Errors{
		"leadId: must be a valid UUID",
		"templateType: must be one of: welcome, follow_up, proposal, availability, custom",
	}, errs)
}

func TestNotification_StatusChangeNeedsStatuses(t *testing.T) {
	v := newTestValidator(t)

	_, errs := v.Notification([]byte(`{"type":"status_change","leadId":"` + ownerID + `"}`))
	assert.Equal(t, Errors{"context: is required"}, errs)

	_, errs = v.Notification([]byte(`{"type":"status_change","leadId":"` + ownerID + `","context":{}}`))
	assert.Equal(t, Errors{"context.newStatus: is required", "context.oldStatus: is required"}, errs)

	in, errs := v.Notification([]byte(`{"type":"status_change","leadId":"` + ownerID + `","context":{"oldStatus":"new","newStatus":"proposal_sent"}}`))
	require.Empty(t, errs)
	assert.Equal(t, "proposal", in.Context.NewStatus)

	in, errs = v.Notification([]byte(`{"type":"new_lead","leadId":"` + ownerID + `"}`))
	require.Empty(t, errs)
	assert.Equal(t, types.NotificationNewLead, in.Type)
}

func TestSettingsUpdate(t *testing.T) {
	v := newTestValidator(t)

	_, errs := v.SettingsUpdate([]byte(`{"aiCreativity":1.5,"aiTone":"sarcastic"}`))
	assert.Equal(t, Errors{
		"aiCreativity: must be at most 1",
		"aiTone: must be one of: professional, friendly, casual, formal, warm",
	}, errs)

	in, errs := v.SettingsUpdate([]byte(`{"services":[" Photography ","Video"],"businessName":""}`))
	require.Empty(t, errs)
	require.NotNil(t, in.Services)
	assert.Equal(t, []string{"Photography", "Video"}, *in.Services)
}

func TestCredentials(t *testing.T) {
	v := newTestValidator(t)

	_, errs := v.SignUp([]byte(`{"email":"a@example.com","password":"short"}`))
	assert.Equal(t, Errors{"password: must be at least 8 characters"}, errs)

	in, errs := v.Login([]byte(`{"email":" A@Example.com","password":"x"}`))
	require.Empty(t, errs)
	assert.Equal(t, "a@example.com", in.Email)
}

// Sanitization is deterministic: trimmed names survive, emails come back
// lower-cased, and the error list for an invalid payload is stable.
func TestWebhookLead_Properties(t *testing.T) {
	v := newTestValidator(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MaxSize = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("valid payloads are trimmed and lower-cased", prop.ForAll(
		func(name, local string) bool {
			raw, _ := json.Marshal(map[string]string{
				"name":    "  " + name + "\t",
				"email":   " " + strings.ToUpper(local) + "@Example.COM ",
				"user_id": ownerID,
				"api_key": "k",
			})
			in, errs := v.WebhookLead(raw)
			return errs == nil &&
				in.Name == name &&
				in.Email == strings.ToLower(local)+"@example.com" &&
				in.Source == types.SourceWebhook
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.Identifier(),
	))

	properties.Property("invalid emails are always reported the same way", prop.ForAll(
		func(s string) bool {
			raw, _ := json.Marshal(map[string]string{
				"name":    "Jane",
				"email":   s,
				"user_id": ownerID,
				"api_key": "k",
			})
			first := Errors(nil)
			for i := 0; i < 2; i++ {
				_, errs := v.WebhookLead(raw)
				if len(errs) != 1 || errs[0] != "email: must be a valid email address" {
					return false
				}
				if first != nil && first[0] != errs[0] {
					return false
				}
				first = errs
			}
			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}
