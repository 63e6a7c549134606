// Package email delivers owner notification emails.
package email

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ettore-crm/internal/config"
	"github.com/ettore-crm/internal/logging"
)

// Message is one outbound email with HTML and plain-text bodies
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport sends messages. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned for messages without a recipient
var ErrNoRecipient = errors.New("email: message has no recipient")

// NewTransport picks Mailgun when an API key is configured and the
// log-only transport otherwise.
func NewTransport(cfg config.MailConfig, logger *logging.Logger) (Transport, error) {
	if cfg.MailgunAPIKey == "" {
		logger.Info("MAILGUN_API_KEY not set, notification emails will only be logged")
		return NewLogTransport(logger), nil
	}
	return NewMailgunTransport(cfg)
}

// LogTransport writes messages to the log instead of sending them
type LogTransport struct {
	logger *logging.Logger
}

// NewLogTransport creates a log-only transport
func NewLogTransport(logger *logging.Logger) *LogTransport {
	return &LogTransport{logger: logger.WithField("component", "email")}
}

// previewBytes bounds the logged text preview
const previewBytes = 200

// Send logs the message envelope and a short preview of the text body
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	preview := msg.Text
	if len(preview) > previewBytes {
		n := previewBytes
		for n > 0 && !utf8.RuneStart(preview[n]) {
			n--
		}
		preview = preview[:n] + "..."
	}
	t.logger.WithFields(map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"preview": preview,
	}).Info("email not sent (log transport)")
	return nil
}
