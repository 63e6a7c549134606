package service

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/ettore-crm/internal/types"
)

// statusEmojis decorates statuses in status change emails. Unknown statuses
// get no emoji.
var statusEmojis = map[types.LeadStatus]string{
	types.StatusNew:       "🆕",
	types.StatusContacted: "📞",
	types.StatusQualified: "✅",
	types.StatusProposal:  "📋",
	types.StatusBooked:    "🎉",
	types.StatusLost:      "❌",
}

// StatusEmoji returns the emoji of a status, or "" for unknown statuses
func StatusEmoji(status types.LeadStatus) string {
	return statusEmojis[status]
}

// notSpecified is shown for missing event details
const notSpecified = "Not specified"

// notificationView is the data rendered into every notification template
type notificationView struct {
	UserName     string
	BusinessName string
	LeadName     string
	LeadEmail    string
	EventType    string
	EventDate    string
	DashboardURL string
	OldStatus    string
	NewStatus    string
	OldEmoji     string
	NewEmoji     string
}

// renderedEmail is one notification ready for the transport
type renderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// FormatEventDate renders an event date as "January 2, 2006". Dates that do
// not parse are returned unchanged.
func FormatEventDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "01/02/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return raw
}

// NotificationSubject returns the fixed subject line of a notification kind
func NotificationSubject(kind types.NotificationType, leadName, eventType, newStatus string) string {
	switch kind {
	case types.NotificationNewLead:
		if eventType == "" {
			eventType = notSpecified
		}
		return fmt.Sprintf("🎉 New Lead: %s - %s", leadName, eventType)
	case types.NotificationStatusChange:
		return fmt.Sprintf("📋 Lead Status Updated: %s - %s", leadName, newStatus)
	case types.NotificationDraftGenerated:
		return fmt.Sprintf("✨ AI Draft Ready: Response for %s", leadName)
	default:
		return "Ettore notification"
	}
}

func renderNotification(kind types.NotificationType, view notificationView) (*renderedEmail, error) {
	htmlTmpl, ok := htmlTemplates[kind]
	if !ok {
		return nil, fmt.Errorf("unknown notification type %q", kind)
	}
	textTmpl := textTemplates[kind]

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, view); err != nil {
		return nil, fmt.Errorf("failed to render %s html: %w", kind, err)
	}
	if err := textTmpl.Execute(&textBuf, view); err != nil {
		return nil, fmt.Errorf("failed to render %s text: %w", kind, err)
	}

	return &renderedEmail{
		Subject: NotificationSubject(kind, view.LeadName, view.EventType, view.NewStatus),
		HTML:    htmlBuf.String(),
		Text:    strings.TrimSpace(textBuf.String()),
	}, nil
}

const emailLayoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{template "title" .}}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f8fafc; }
    .container { max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; }
    .header { background: {{template "accent" .}}; color: white; padding: 32px 24px; text-align: center; }
    .header h1 { margin: 0; font-size: 24px; font-weight: 600; }
    .content { padding: 32px 24px; }
    .box { background: #f8fafc; border-radius: 8px; padding: 20px; margin: 20px 0; }
    .label { font-weight: 600; color: #6b7280; }
    .badge { display: inline-block; padding: 6px 12px; border-radius: 20px; font-weight: 600; margin: 0 8px; }
    .cta { text-align: center; margin: 32px 0; }
    .button { display: inline-block; background: {{template "accent" .}}; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: 600; }
    .footer { background: #f8fafc; padding: 20px 24px; text-align: center; color: #6b7280; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    {{template "body" .}}
    <div class="footer">
      <p>This is an automated notification from Ettore AI Secretary</p>
      <p>You can manage your notification preferences in your dashboard settings</p>
    </div>
  </div>
</body>
</html>{{end}}`

const newLeadHTML = `{{define "title"}}New Lead Notification{{end}}
{{define "accent"}}#667eea{{end}}
{{define "body"}}
    <div class="header">
      <h1>🎉 New Lead Received!</h1>
      <p>You have a new wedding inquiry</p>
    </div>
    <div class="content">
      <p>Hi {{.UserName}},</p>
      <p>Great news! You've received a new lead through your website. Here are the details:</p>
      <div class="box">
        <h3>Lead Information</h3>
        <p><span class="label">Name:</span> {{.LeadName}}</p>
        <p><span class="label">Email:</span> {{.LeadEmail}}</p>
        <p><span class="label">Event Type:</span> {{or .EventType "Not specified"}}</p>
        {{- if .EventDate}}
        <p><span class="label">Event Date:</span> {{.EventDate}}</p>
        {{- end}}
      </div>
      <p>This lead is now available in your dashboard where you can generate AI-powered email responses, track lead status and manage follow-up communications.</p>
      <div class="cta"><a href="{{.DashboardURL}}" class="button">View Lead in Dashboard</a></div>
      <p>Best regards,<br>The Ettore Team</p>
    </div>
{{end}}`

const statusChangeHTML = `{{define "title"}}Lead Status Update{{end}}
{{define "accent"}}#10b981{{end}}
{{define "body"}}
    <div class="header">
      <h1>📋 Lead Status Updated</h1>
      <p>Status change for {{.LeadName}}</p>
    </div>
    <div class="content">
      <p>Hi {{.UserName}},</p>
      <p>The status for your lead <strong>{{.LeadName}}</strong> has been updated:</p>
      <div class="box" style="text-align: center;">
        <span class="badge" style="background: #f3f4f6; color: #6b7280;">{{with .OldEmoji}}{{.}} {{end}}{{.OldStatus}}</span>
        <span>→</span>
        <span class="badge" style="background: #10b981; color: white;">{{with .NewEmoji}}{{.}} {{end}}{{.NewStatus}}</span>
      </div>
      <p>You can view the full lead details and continue managing this opportunity in your dashboard.</p>
      <div class="cta"><a href="{{.DashboardURL}}" class="button">View Lead Details</a></div>
      <p>Best regards,<br>The Ettore Team</p>
    </div>
{{end}}`

const draftGeneratedHTML = `{{define "title"}}AI Draft Ready{{end}}
{{define "accent"}}#8b5cf6{{end}}
{{define "body"}}
    <div class="header">
      <h1>✨ AI Draft Ready!</h1>
      <p>Your personalized email response is ready</p>
    </div>
    <div class="content">
      <p>Hi {{.UserName}},</p>
      <p>Great news! I've generated a personalized email draft for your lead <strong>{{.LeadName}}</strong>.</p>
      <div class="box">
        <p><span class="label">Email:</span> {{.LeadEmail}}</p>
        <p><span class="label">Event Type:</span> {{or .EventType "Not specified"}}</p>
        {{- if .EventDate}}
        <p><span class="label">Event Date:</span> {{.EventDate}}</p>
        {{- end}}
      </div>
      <p>You can review, edit, and send the draft directly from your dashboard.</p>
      <div class="cta"><a href="{{.DashboardURL}}" class="button">Review &amp; Send Draft</a></div>
      <p>Best regards,<br>Your AI Assistant Ettore</p>
    </div>
{{end}}`

const newLeadText = `
🎉 New Lead Received!

Hi {{.UserName}},

Great news! You've received a new lead through your website.

Lead Information:
- Name: {{.LeadName}}
- Email: {{.LeadEmail}}
- Event Type: {{or .EventType "Not specified"}}
{{- if .EventDate}}
- Event Date: {{.EventDate}}
{{- end}}

This lead is now available in your dashboard where you can generate AI-powered email responses, track lead status, and manage follow-up communications.

View Lead: {{.DashboardURL}}

Best regards,
The Ettore Team

---
This is an automated notification from Ettore AI Secretary.
You can manage your notification preferences in your dashboard settings.
`

const statusChangeText = `
📋 Lead Status Updated

Hi {{.UserName}},

The status for your lead {{.LeadName}} has been updated:

{{with .OldEmoji}}{{.}} {{end}}{{.OldStatus}} → {{with .NewEmoji}}{{.}} {{end}}{{.NewStatus}}

You can view the full lead details and continue managing this opportunity in your dashboard.

View Lead: {{.DashboardURL}}

Best regards,
The Ettore Team

---
This is an automated notification from Ettore AI Secretary.
`

const draftGeneratedText = `
✨ AI Draft Ready!

Hi {{.UserName}},

Great news! I've generated a personalized email draft for your lead {{.LeadName}} ({{.LeadEmail}}).

Event Type: {{or .EventType "Not specified"}}
{{- if .EventDate}}
Event Date: {{.EventDate}}
{{- end}}

You can review, edit, and send the draft directly from your dashboard.

Review Draft: {{.DashboardURL}}

Best regards,
Your AI Assistant Ettore

---
This is an automated notification from Ettore AI Secretary.
`

var (
	htmlTemplates = map[types.NotificationType]*htmltemplate.Template{
		types.NotificationNewLead:        mustHTML("new_lead", newLeadHTML),
		types.NotificationStatusChange:   mustHTML("status_change", statusChangeHTML),
		types.NotificationDraftGenerated: mustHTML("draft_generated", draftGeneratedHTML),
	}
	textTemplates = map[types.NotificationType]*texttemplate.Template{
		types.NotificationNewLead:        texttemplate.Must(texttemplate.New("new_lead").Parse(newLeadText)),
		types.NotificationStatusChange:   texttemplate.Must(texttemplate.New("status_change").Parse(statusChangeText)),
		types.NotificationDraftGenerated: texttemplate.Must(texttemplate.New("draft_generated").Parse(draftGeneratedText)),
	}
)

func mustHTML(name, body string) *htmltemplate.Template {
	t := htmltemplate.Must(htmltemplate.New(name).Parse(emailLayoutHTML))
	t = htmltemplate.Must(t.Parse(body))
	return htmltemplate.Must(t.Parse(`{{template "layout" .}}`))
}
