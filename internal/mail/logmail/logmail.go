// Package logmail is a development mail backend: messages are logged and
// kept in memory instead of being delivered.
package logmail

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"orderdesk/internal/mail"
)

type Sender struct {
	mu   sync.Mutex
	sent []mail.Message
}

var _ mail.Sender = (*Sender)(nil)

func New() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	slog.InfoContext(ctx, "Email logged (log backend, not delivered)",
		"to", strings.Join(msg.To, ","),
		"cc", strings.Join(msg.Cc, ","),
		"subject", msg.Subject)
	return nil
}

// Sent returns a copy of every message handed to the sender.
func (s *Sender) Sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.sent))
	copy(out, s.sent)
	return out
}
