// Package mailer composes the contact notification emails and hands them to
// an outbound transport (SMTP relay or the Gmail API).
package mailer

import (
	"context"
)

// Message kinds
const (
	KindPrimary   = "primary"
	KindAutoReply = "auto_reply"
)

// Envelope is one outbound message: the SMTP envelope plus the encoded
// RFC 5322 bytes.
type Envelope struct {
	Kind string
	From string
	To   []string
	Raw  []byte
}

// Sender delivers envelopes. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
	// Name identifies the transport in logs, metrics and error hints.
	Name() string
}
