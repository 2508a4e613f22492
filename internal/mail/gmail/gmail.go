// Package gmail delivers notification emails through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"orderdesk/internal/mail"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"
)

type Sender struct {
	svc *gmailapi.Service
}

var _ mail.Sender = (*Sender)(nil)

// NewFromEnv builds a Gmail sender from environment credentials.
//
// Service-account auth (requires domain-wide delegation):
// GMAIL_SERVICE_ACCOUNT_JSON, GMAIL_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
//
// OAuth auth (token bootstrapped with cmd/oauth-init):
// GMAIL_OAUTH_CLIENT_JSON or GMAIL_OAUTH_CLIENT_FILE, plus
// GMAIL_OAUTH_TOKEN_JSON or GMAIL_OAUTH_TOKEN_FILE.
func NewFromEnv(ctx context.Context) (*Sender, error) {
	svc, err := newGmailService(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	return &Sender{svc: svc}, nil
}

func newGmailService(ctx context.Context) (*gmailapi.Service, error) {
	if clientJSON, tokenJSON, ok := oauthPairFromEnv(); ok {
		cfg, err := google.ConfigFromJSON(clientJSON, gmailapi.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		var token oauth2.Token
		if err := json.Unmarshal(tokenJSON, &token); err != nil {
			return nil, fmt.Errorf("parse oauth token: %w", err)
		}
		slog.InfoContext(ctx, "Using OAuth client credentials for Gmail")
		return gmailapi.NewService(ctx, goption.WithTokenSource(cfg.TokenSource(ctx, &token)))
	}

	credentialsJSON, err := serviceAccountFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Creating Gmail service with service account",
		"credentials_size", len(credentialsJSON),
		"scope", gmailapi.GmailSendScope)
	return gmailapi.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gmailapi.GmailSendScope))
}

func oauthPairFromEnv() (client, token []byte, ok bool) {
	client = bytesFromEnv("GMAIL_OAUTH_CLIENT_JSON", "GMAIL_OAUTH_CLIENT_FILE")
	token = bytesFromEnv("GMAIL_OAUTH_TOKEN_JSON", "GMAIL_OAUTH_TOKEN_FILE")
	return client, token, len(client) > 0 && len(token) > 0
}

func bytesFromEnv(jsonVar, fileVar string) []byte {
	if v := strings.TrimSpace(os.Getenv(jsonVar)); v != "" {
		return []byte(v)
	}
	if path := strings.TrimSpace(os.Getenv(fileVar)); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			return b
		}
	}
	return nil
}

func serviceAccountFromEnv(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GMAIL_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GMAIL_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read Gmail credentials file", "path", serviceAccountFile, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing Gmail credentials (set GMAIL_SERVICE_ACCOUNT_JSON, GMAIL_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client/token pair)")
	}
}

// Send delivers the message as the authenticated user.
func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	raw := buildRFC2822(msg)
	gm := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	if _, err := s.svc.Users.Messages.Send("me", gm).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	slog.InfoContext(ctx, "Email sent via Gmail",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject)
	return nil
}

func buildRFC2822(msg mail.Message) string {
	var b strings.Builder
	if msg.From != "" {
		fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	}
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(msg.Cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
