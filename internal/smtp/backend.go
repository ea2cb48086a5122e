package smtp

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/exposingwithjay/cybersentinel-backend/internal/storage"
)

// Security limits
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// MessageHandler is called for every message the sink accepts
type MessageHandler func(msg *CapturedMessage)

// Backend implements the go-smtp Backend interface for the development sink
type Backend struct {
	archive   storage.MailArchive
	onMessage MessageHandler
	username  string
	password  string
	logger    *slog.Logger
}

// BackendConfig holds configuration for the sink backend
type BackendConfig struct {
	// Archive receives the raw bytes of every message (optional)
	Archive storage.MailArchive
	// OnMessage is invoked after a message is archived (optional)
	OnMessage MessageHandler
	// Username and Password, when set, require PLAIN auth before MAIL
	Username string
	Password string
	Logger   *slog.Logger
}

// NewBackend creates a new sink backend
func NewBackend(cfg *BackendConfig) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		archive:   cfg.Archive,
		onMessage: cfg.OnMessage,
		username:  cfg.Username,
		password:  cfg.Password,
		logger:    logger,
	}
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	b.logger.Debug("new SMTP connection", slog.String("remote_addr", c.Conn().RemoteAddr().String()))
	return NewSession(b), nil
}

func (b *Backend) requiresAuth() bool {
	return b.username != ""
}

// ServerConfig holds security configuration for the SMTP server
type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// NewSecureServer creates a new SMTP server with security settings
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = cfg.Addr
	s.Domain = cfg.Domain

	// Set message size limit
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	} else {
		s.MaxMessageBytes = DefaultMaxMessageSize
	}

	// Set recipient limit
	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	} else {
		s.MaxRecipients = DefaultMaxRecipients
	}

	// Set timeouts
	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	} else {
		s.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	} else {
		s.WriteTimeout = DefaultWriteTimeout
	}

	// Plaintext AUTH is only for a loopback sink
	s.AllowInsecureAuth = cfg.AllowInsecure

	if cfg.TLSConfig != nil {
		s.TLSConfig = cfg.TLSConfig
	}

	// Set max line length to prevent buffer overflow attacks
	s.MaxLineLength = DefaultMaxLineLength

	return s
}
