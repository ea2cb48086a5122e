package mailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig holds the OAuth2 credentials of the sending account
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// UserID is the sending account; "me" uses the token owner
	UserID string
}

// GmailSender delivers envelopes through the Gmail API
type GmailSender struct {
	service *gmail.Service
	userID  string
}

// NewGmailSender creates a GmailSender authorized by a refresh token.
// Extra client options are applied last (tests point the endpoint at a
// local server).
func NewGmailSender(ctx context.Context, cfg GmailConfig, opts ...option.ClientOption) (*GmailSender, error) {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	tokenSource := oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	clientOpts := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, opts...)
	service, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return NewGmailSenderFromService(service, cfg.UserID), nil
}

// NewGmailSenderFromService wraps an already configured Gmail service
func NewGmailSenderFromService(service *gmail.Service, userID string) *GmailSender {
	if userID == "" {
		userID = "me"
	}
	return &GmailSender{service: service, userID: userID}
}

// Name returns the transport name
func (g *GmailSender) Name() string {
	return "gmail"
}

// Send uploads the raw message with users.messages.send. Gmail derives the
// recipients from the message headers.
func (g *GmailSender) Send(ctx context.Context, env *Envelope) error {
	message := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(env.Raw),
	}

	if _, err := g.service.Users.Messages.Send(g.userID, message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send failed: %w", err)
	}
	return nil
}
