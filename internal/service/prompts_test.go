package service

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/ettore-crm/internal/types"
)

func TestBuildPrompt_WelcomeFallbacks(t *testing.T) {
	prompt := BuildPrompt(EmailContext{LeadName: "Jane"}, types.TemplateWelcome, nil)

	assert.Contains(t, prompt, "Jane")
	assert.Contains(t, prompt, "Event Type: wedding")
	assert.Contains(t, prompt, "Event Date: your special day")
	assert.Contains(t, prompt, "Services: our services")
	assert.NotContains(t, prompt, "{eventType}")
}

func TestBuildPrompt_StyleHints(t *testing.T) {
	c := EmailContext{
		LeadName:           "Jane",
		Tone:               "friendly",
		CustomInstructions: "Mention the spring discount.",
		Signature:          "Giulia\nLumen Studio",
	}
	prompt := BuildPrompt(c, types.TemplateAvailability, nil)

	assert.True(t, strings.HasPrefix(prompt, "Write an email confirming availability"))
	assert.Contains(t, prompt, "Tone: write in a friendly tone.")
	assert.Contains(t, prompt, "Additional instructions: Mention the spring discount.")
	assert.True(t, strings.HasSuffix(prompt, "Giulia\nLumen Studio"))
}

func TestBuildPrompt_BlankCustomPromptUsesTemplate(t *testing.T) {
	prompt := BuildPrompt(EmailContext{}, types.TemplateFollowUp, strPtr("   "))
	assert.True(t, strings.HasPrefix(prompt, "Write a friendly follow-up email"))
}

func TestPromptTemplate_UnknownFallsBackToWelcome(t *testing.T) {
	assert.Equal(t, PromptTemplate(types.TemplateWelcome), PromptTemplate(types.TemplateCustom))
	assert.Equal(t, PromptTemplate(types.TemplateWelcome), PromptTemplate("mystery"))
	assert.NotEqual(t, PromptTemplate(types.TemplateWelcome), PromptTemplate(types.TemplateProposal))
}

func TestEmailContext_ServicesJoin(t *testing.T) {
	c := EmailContext{UserServices: []string{" photo ", "", "video"}}
	assert.Equal(t, "photo, video", c.Value(PlaceholderUserServices))

	c = EmailContext{UserServices: []string{" ", ""}}
	assert.Equal(t, "our services", c.Value(PlaceholderUserServices))
}

func TestFillPlaceholders_TokensInValuesAreStripped(t *testing.T) {
	c := EmailContext{
		LeadName:  "Jane {userName}",
		EventType: "see {eventType}",
		Message:   "{lead{budget}Name}",
		Budget:    "{budget}",
	}

	got := FillPlaceholders("{leadName} / {eventType} / {message} / {budget}", c)
	assert.Equal(t, "Jane  / see  /  / your budget", got)
	for _, p := range Placeholders() {
		assert.NotContains(t, got, p.Token)
	}
}

func TestSubjectPrompt(t *testing.T) {
	prompt := SubjectPrompt(EmailContext{LeadName: "Jane"}, types.TemplateProposal)
	assert.Contains(t, prompt, "- Lead: Jane")
	assert.Contains(t, prompt, "- Event: wedding")
	assert.Contains(t, prompt, "- Business: our business")
	assert.Contains(t, prompt, "- Template type: proposal")
}

// Placeholder tokens never survive substitution, and blank values are
// replaced by their fallback.
func TestFillPlaceholders_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	tokens := make([]interface{}, 0)
	for _, p := range Placeholders() {
		tokens = append(tokens, p.Token)
	}
	templates := []interface{}{
		types.TemplateWelcome, types.TemplateFollowUp, types.TemplateAvailability,
		types.TemplateProposal, types.TemplateCustom,
	}

	// Lead supplied text may itself carry tokens.
	value := gen.OneGenOf(gen.Const(""), gen.Const("   "), gen.AlphaString(),
		gen.Const("see {eventType}"), gen.Const("{lead{budget}Name}"))

	contextGen := gopter.CombineGens(value, value, value, value, value, value, value, value).
		Map(func(vals []interface{}) EmailContext {
			return EmailContext{
				LeadName:         vals[0].(string),
				LeadEmail:        vals[1].(string),
				EventType:        vals[2].(string),
				EventDate:        vals[3].(string),
				Budget:           vals[4].(string),
				Message:          vals[5].(string),
				UserBusinessName: vals[6].(string),
				UserName:         vals[7].(string),
			}
		})

	properties.Property("no placeholder token survives a built-in template", prop.ForAll(
		func(c EmailContext, tt types.TemplateType) bool {
			prompt := BuildPrompt(c, tt, nil)
			for _, p := range Placeholders() {
				if strings.Contains(prompt, p.Token) {
					return false
				}
			}
			return true
		},
		contextGen,
		gen.OneConstOf(templates...),
	))

	properties.Property("custom prompts made of tokens are fully substituted", prop.ForAll(
		func(c EmailContext, picked []string) bool {
			custom := strings.Join(picked, " | ")
			if strings.TrimSpace(custom) == "" {
				return true
			}
			prompt := FillPlaceholders(custom, c)
			for _, p := range Placeholders() {
				if strings.Contains(prompt, p.Token) {
					return false
				}
			}
			return true
		},
		contextGen,
		gen.SliceOfN(6, gen.OneConstOf(tokens...), reflect.TypeOf("")),
	))

	properties.Property("blank values use the fallback", prop.ForAll(
		func(blank string) bool {
			c := EmailContext{
				LeadName:         blank,
				EventType:        blank,
				EventDate:        blank,
				Budget:           blank,
				UserBusinessName: blank,
				UserName:         blank,
			}
			for _, p := range Placeholders() {
				if c.Value(p) != p.Fallback {
					return false
				}
			}
			return true
		},
		gen.OneConstOf("", " ", "\t", "  \n "),
	))

	properties.Property("non-blank values are substituted verbatim", prop.ForAll(
		func(name string) bool {
			return FillPlaceholders("Hi {leadName}!", EmailContext{LeadName: name}) == "Hi "+name+"!"
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
