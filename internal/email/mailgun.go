package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ettore-crm/internal/config"
	"github.com/mailgun/mailgun-go/v4"
)

// MailgunTransport sends messages through the Mailgun HTTP API
type MailgunTransport struct {
	mg      mailgun.Mailgun
	from    string
	timeout time.Duration
}

// NewMailgunTransport creates a Mailgun-backed transport
func NewMailgunTransport(cfg config.MailConfig) (*MailgunTransport, error) {
	if cfg.MailgunAPIKey == "" {
		return nil, fmt.Errorf("MAILGUN_API_KEY is required")
	}
	if cfg.MailgunDomain == "" {
		return nil, fmt.Errorf("MAILGUN_DOMAIN is required when MAILGUN_API_KEY is set")
	}

	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIURL != "" {
		// EU region or a test server
		mg.SetAPIBase(cfg.MailgunAPIURL)
	}

	from := cfg.From
	if from == "" {
		from = "Ettore AI Secretary <notifications@" + cfg.MailgunDomain + ">"
	}

	return &MailgunTransport{mg: mg, from: from, timeout: 10 * time.Second}, nil
}

// Send delivers the message. Mailgun errors are returned unchanged apart
// from a hint for authentication failures.
func (t *MailgunTransport) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}

	m := mailgun.NewMessage(t.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if _, _, err := t.mg.Send(ctx, m); err != nil {
		if strings.Contains(err.Error(), "401") {
			return fmt.Errorf("mailgun rejected credentials, verify MAILGUN_API_KEY and MAILGUN_DOMAIN: %w", err)
		}
		return fmt.Errorf("failed to send email via mailgun: %w", err)
	}
	return nil
}
