package service

import (
	"fmt"
	"strings"

	"github.com/ettore-crm/internal/types"
)

// Placeholder is a token substituted into draft prompts
type Placeholder struct {
	Token    string
	Fallback string
}

// The placeholder set understood by prompt templates and custom prompts.
// Every token is replaced with the context value or its fallback.
var (
	PlaceholderLeadName         = Placeholder{Token: "{leadName}", Fallback: "there"}
	PlaceholderLeadEmail        = Placeholder{Token: "{leadEmail}", Fallback: ""}
	PlaceholderEventType        = Placeholder{Token: "{eventType}", Fallback: "wedding"}
	PlaceholderEventDate        = Placeholder{Token: "{eventDate}", Fallback: "your special day"}
	PlaceholderBudget           = Placeholder{Token: "{budget}", Fallback: "your budget"}
	PlaceholderMessage          = Placeholder{Token: "{message}", Fallback: ""}
	PlaceholderUserBusinessName = Placeholder{Token: "{userBusinessName}", Fallback: "our business"}
	PlaceholderUserName         = Placeholder{Token: "{userName}", Fallback: "the team"}
	PlaceholderUserServices     = Placeholder{Token: "{userServices}", Fallback: "our services"}
)

// Placeholders returns the complete placeholder set
func Placeholders() []Placeholder {
	return []Placeholder{
		PlaceholderLeadName,
		PlaceholderLeadEmail,
		PlaceholderEventType,
		PlaceholderEventDate,
		PlaceholderBudget,
		PlaceholderMessage,
		PlaceholderUserBusinessName,
		PlaceholderUserName,
		PlaceholderUserServices,
	}
}

// EmailContext is everything a draft prompt may refer to
type EmailContext struct {
	LeadName         string
	LeadEmail        string
	EventType        string
	EventDate        string
	Budget           string
	Message          string
	UserBusinessName string
	UserName         string
	UserServices     []string

	// Optional style hints from the owner's settings
	Tone               string
	CustomInstructions string
	Signature          string
}

// Value returns the substitution of p for this context
func (c EmailContext) Value(p Placeholder) string {
	var v string
	switch p.Token {
	case PlaceholderLeadName.Token:
		v = c.LeadName
	case PlaceholderLeadEmail.Token:
		v = c.LeadEmail
	case PlaceholderEventType.Token:
		v = c.EventType
	case PlaceholderEventDate.Token:
		v = c.EventDate
	case PlaceholderBudget.Token:
		v = c.Budget
	case PlaceholderMessage.Token:
		v = c.Message
	case PlaceholderUserBusinessName.Token:
		v = c.UserBusinessName
	case PlaceholderUserName.Token:
		v = c.UserName
	case PlaceholderUserServices.Token:
		services := make([]string, 0, len(c.UserServices))
		for _, svc := range c.UserServices {
			if svc = strings.TrimSpace(svc); svc != "" {
				services = append(services, svc)
			}
		}
		v = strings.Join(services, ", ")
	}
	v = stripTokens(v)
	if strings.TrimSpace(v) == "" {
		return p.Fallback
	}
	return v
}

var tokenStripper = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(Placeholders()))
	for _, p := range Placeholders() {
		pairs = append(pairs, p.Token, "")
	}
	return strings.NewReplacer(pairs...)
}()

// stripTokens removes placeholder tokens from lead or owner supplied text.
// Removal repeats until stable since "{lead{budget}Name}" collapses into a token.
func stripTokens(v string) string {
	for {
		next := tokenStripper.Replace(v)
		if next == v {
			return v
		}
		v = next
	}
}

// FillPlaceholders substitutes every placeholder token in prompt. Values are
// stripped of tokens first, so no token survives substitution.
func FillPlaceholders(prompt string, c EmailContext) string {
	pairs := make([]string, 0, 2*len(Placeholders()))
	for _, p := range Placeholders() {
		pairs = append(pairs, p.Token, c.Value(p))
	}
	return strings.NewReplacer(pairs...).Replace(prompt)
}

// BuildPrompt selects the template for templateType, or customPrompt when
// given, appends the owner's style hints and fills the placeholders.
func BuildPrompt(c EmailContext, templateType types.TemplateType, customPrompt *string) string {
	prompt := PromptTemplate(templateType)
	if customPrompt != nil && strings.TrimSpace(*customPrompt) != "" {
		prompt = *customPrompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	if tone := strings.TrimSpace(c.Tone); tone != "" {
		fmt.Fprintf(&b, "\n\nTone: write in a %s tone.", tone)
	}
	if instr := strings.TrimSpace(c.CustomInstructions); instr != "" {
		fmt.Fprintf(&b, "\n\nAdditional instructions: %s", instr)
	}
	if sig := strings.TrimSpace(c.Signature); sig != "" {
		fmt.Fprintf(&b, "\n\nEnd the email with this signature:\n%s", sig)
	}

	return FillPlaceholders(b.String(), c)
}

// SubjectPrompt is the fixed meta-prompt used to obtain a subject line
func SubjectPrompt(c EmailContext, templateType types.TemplateType) string {
	return fmt.Sprintf(`Generate a professional, engaging email subject line for this context:
- Lead: %s
- Event: %s
- Business: %s
- Template type: %s

The subject should be:
- Professional but warm
- Specific to their event
- Under 50 characters
- Engaging and personal

Return only the subject line, no quotes or extra text.`,
		c.Value(PlaceholderLeadName),
		c.Value(PlaceholderEventType),
		c.Value(PlaceholderUserBusinessName),
		templateType,
	)
}

// PromptTemplate returns the built-in prompt of a template type. Custom and
// unknown types use the welcome prompt.
func PromptTemplate(templateType types.TemplateType) string {
	if p, ok := promptTemplates[templateType]; ok {
		return p
	}
	return promptTemplates[types.TemplateWelcome]
}

var promptTemplates = map[types.TemplateType]string{
	types.TemplateWelcome: `Write a warm, professional welcome email for a wedding professional responding to a new lead.

Context:
- Lead Name: {leadName}
- Event Type: {eventType}
- Event Date: {eventDate}
- Budget: {budget}
- Original Message: {message}
- Business Name: {userBusinessName}
- Professional Name: {userName}
- Services: {userServices}

The email should:
- Thank them for their inquiry
- Show enthusiasm about their event
- Briefly mention relevant services
- Suggest next steps (consultation, meeting, etc.)
- Be warm but professional
- Include a clear call-to-action

Keep it concise (2-3 paragraphs) and personalized.`,

	types.TemplateFollowUp: `Write a friendly follow-up email for a wedding professional checking in with a lead.

Context:
- Lead Name: {leadName}
- Event Type: {eventType}
- Event Date: {eventDate}
- Business Name: {userBusinessName}
- Professional Name: {userName}

The email should:
- Reference their previous inquiry
- Check if they have any questions
- Offer to schedule a consultation
- Mention availability for their date
- Be helpful and not pushy
- Include contact information

Keep it brief and focused on being helpful.`,

	types.TemplateAvailability: `Write an email confirming availability for a wedding date.

Context:
- Lead Name: {leadName}
- Event Type: {eventType}
- Event Date: {eventDate}
- Business Name: {userBusinessName}
- Professional Name: {userName}
- Services: {userServices}

The email should:
- Confirm availability for their date
- Briefly outline services offered
- Suggest scheduling a consultation
- Mention next steps in the process
- Be professional and excited
- Include a clear call-to-action

Keep it professional and informative.`,

	types.TemplateProposal: `Write an email introducing a proposal from a wedding professional to a lead.

Context:
- Lead Name: {leadName}
- Event Type: {eventType}
- Event Date: {eventDate}
- Budget: {budget}
- Original Message: {message}
- Business Name: {userBusinessName}
- Professional Name: {userName}
- Services: {userServices}

The email should:
- Thank them for the conversation so far
- Summarize the services proposed for their event
- Relate the proposal to their budget without quoting exact prices
- Explain how to accept or adjust the proposal
- Be confident, warm and professional
- Include a clear call-to-action

Keep it to 3 short paragraphs.`,
}
