// Package backend selects the mail delivery backend from configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"orderdesk/internal/mail"
	"orderdesk/internal/mail/gmail"
	"orderdesk/internal/mail/logmail"
)

// SenderType names a mail backend.
type SenderType string

const (
	GmailSender SenderType = "gmail"
	LogSender   SenderType = "log"
)

func (st SenderType) String() string { return string(st) }

func (st SenderType) IsValid() bool {
	switch st {
	case GmailSender, LogSender:
		return true
	}
	return false
}

// NewSender builds the configured mail sender.
func NewSender(ctx context.Context, senderType SenderType, logger *slog.Logger) (mail.Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch senderType {
	case GmailSender:
		sender, err := gmail.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Gmail sender: %w", err)
		}
		logger.Info("Initialized Gmail mail backend")
		return sender, nil
	case LogSender:
		logger.Info("Initialized log mail backend (emails are not delivered)")
		return logmail.New(), nil
	default:
		return nil, fmt.Errorf("invalid mail backend: %s", senderType)
	}
}
