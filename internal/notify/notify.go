// Package notify delivers order emails to the shop operator and the customer.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by LogNotifier; nothing was delivered.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Attachment is a file on disk sent along with a message.
type Attachment struct {
	Name string
	Path string
}

// Message is one rendered email.
type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	ReplyTo     string
	Attachments []Attachment
}

// Notifier attempts delivery of a message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier stands in when no mail server is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message envelope and reports that it was not delivered.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("email not configured, skipping delivery",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)))
	return ErrNotConfigured
}
