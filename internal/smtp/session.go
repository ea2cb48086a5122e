package smtp

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

var (
	errAuthRequired = &smtp.SMTPError{
		Code:         530,
		EnhancedCode: smtp.EnhancedCode{5, 7, 0},
		Message:      "Authentication required",
	}
	errAuthFailed = &smtp.SMTPError{
		Code:         535,
		EnhancedCode: smtp.EnhancedCode{5, 7, 8},
		Message:      "Authentication failed",
	}
	errUnknownMechanism = &smtp.SMTPError{
		Code:         504,
		EnhancedCode: smtp.EnhancedCode{5, 7, 4},
		Message:      "Unsupported authentication mechanism",
	}
)

// Session implements the go-smtp Session interface
type Session struct {
	backend       *Backend
	from          string
	recipients    []string
	authenticated bool
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend) *Session {
	return &Session{
		backend:    backend,
		recipients: make([]string, 0),
	}
}

// AuthMechanisms advertises PLAIN only when the sink has credentials
func (s *Session) AuthMechanisms() []string {
	if !s.backend.requiresAuth() {
		return nil
	}
	return []string{sasl.Plain}
}

// Auth handles the AUTH command
func (s *Session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, errUnknownMechanism
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if identity != "" && identity != username {
			return errAuthFailed
		}
		if username != s.backend.username || password != s.backend.password {
			s.backend.logger.Warn("sink authentication failed")
			return errAuthFailed
		}
		s.authenticated = true
		return nil
	}), nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	if s.backend.requiresAuth() && !s.authenticated {
		return errAuthRequired
	}
	s.from = from
	return nil
}

// Rcpt handles the RCPT TO command
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	if _, _, err := parseEmailAddress(to); err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the DATA command: the message is archived, parsed and
// handed to the backend's handler.
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	msg, err := ParseEmail(bytes.NewReader(raw))
	if err != nil {
		s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}
	msg.EnvelopeFrom = s.from
	msg.Recipients = append([]string(nil), s.recipients...)
	msg.Size = len(raw)

	if s.backend.archive != nil {
		path, err := s.backend.archive.Save(bytes.NewReader(raw))
		if err != nil {
			s.backend.logger.Error("failed to archive email", slog.Any("error", err))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Temporary error",
			}
		}
		msg.ArchivePath = path
	}

	// Recipient addresses may belong to submitters; only counts are logged.
	s.backend.logger.Info("email captured",
		slog.Int("recipients", len(msg.Recipients)),
		slog.String("subject", msg.Subject),
		slog.String("submission_id", msg.Headers["X-CyberSentinel-ID"]),
		slog.String("archive_path", msg.ArchivePath),
		slog.Int("size", msg.Size))

	if s.backend.onMessage != nil {
		s.backend.onMessage(msg)
	}
	return nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	// Remove angle brackets if present
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}
