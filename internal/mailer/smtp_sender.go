package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// TLS modes understood by SMTPSender
const (
	TLSStartTLS = "starttls"
	TLSImplicit = "tls"
	TLSNone     = "none"
)

// SMTPConfig holds the relay settings for SMTPSender
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	TLSMode   string
	TLSConfig *tls.Config
	// Timeout bounds the whole exchange when ctx carries no deadline
	Timeout time.Duration
	// Label overrides the transport name (e.g. "sink")
	Label string
}

// SMTPSender delivers envelopes through an SMTP relay
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a new SMTPSender
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = TLSStartTLS
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TLSConfig == nil {
		cfg.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return &SMTPSender{cfg: cfg}
}

// Name returns the transport name
func (s *SMTPSender) Name() string {
	if s.cfg.Label != "" {
		return s.cfg.Label
	}
	return "smtp"
}

// Send delivers one envelope: dial, optional TLS, optional PLAIN auth,
// MAIL/RCPT/DATA, QUIT.
func (s *SMTPSender) Send(ctx context.Context, env *Envelope) error {
	if len(env.To) == 0 {
		return fmt.Errorf("no recipients for %s message", env.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	if err := c.SendMail(env.From, env.To, bytes.NewReader(env.Raw)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp quit failed: %w", err)
	}
	return nil
}

// dial opens the connection with the configured TLS mode. The deadline of
// ctx is applied to the socket so a stalled relay cannot hold the request.
func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	switch s.cfg.TLSMode {
	case TLSImplicit:
		return smtp.NewClient(tls.Client(conn, s.cfg.TLSConfig)), nil
	case TLSNone:
		return smtp.NewClient(conn), nil
	default:
		c, err := smtp.NewClientStartTLS(conn, s.cfg.TLSConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls with %s failed: %w", addr, err)
		}
		return c, nil
	}
}
