package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail transports
const (
	TransportSink  = "sink"
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
)

// SMTP TLS modes
const (
	TLSModeStartTLS = "starttls"
	TLSModeImplicit = "tls"
	TLSModeNone     = "none"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	APIPort    int
	TrustProxy bool

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Contact intake
	OpsMailbox          string
	NoReplyAddress      string
	Cooldown            time.Duration
	OperationalLogLimit int
	DisplayLogLimit     int
	ReleaseOnFailure    bool
	RetentionSchedule   string

	// Outbound mail
	MailTransport string
	MailTimeout   time.Duration
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLS       string

	// Gmail API
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	// Development mail sink
	SinkAddr        string
	MailArchivePath string
}

// LoadEnvFiles loads variables from the given .env files into the process
// environment. Missing files are skipped and variables that are already set
// are left untouched.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	if cfg.APIPort, err = envInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = envBool("TRUST_PROXY", false); err != nil {
		return nil, err
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = envString("LOG_LEVEL", "info")

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = envString("APP_ENV", "development")

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	// Contact intake
	cfg.OpsMailbox = envString("CONTACT_OPS_MAILBOX", "support@exposingwithjay.store")
	cfg.NoReplyAddress = envString("CONTACT_NOREPLY_ADDRESS", "noreply@exposingwithjay.store")
	if cfg.Cooldown, err = envDuration("CONTACT_COOLDOWN", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.OperationalLogLimit, err = envInt("CONTACT_OPERATIONAL_LOG_LIMIT", 1000); err != nil {
		return nil, err
	}
	if cfg.DisplayLogLimit, err = envInt("CONTACT_DISPLAY_LOG_LIMIT", 500); err != nil {
		return nil, err
	}
	if cfg.ReleaseOnFailure, err = envBool("CONTACT_RELEASE_ON_FAILURE", false); err != nil {
		return nil, err
	}
	cfg.RetentionSchedule = envString("RETENTION_SCHEDULE", "@every 1h")

	// Outbound mail
	cfg.MailTransport = strings.ToLower(envString("MAIL_TRANSPORT", TransportSink))
	if cfg.MailTimeout, err = envDuration("MAIL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPPort, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPTLS = strings.ToLower(envString("SMTP_TLS", TLSModeStartTLS))

	cfg.GmailClientID = os.Getenv("GMAIL_CLIENT_ID")
	cfg.GmailClientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
	cfg.GmailRefreshToken = os.Getenv("GMAIL_REFRESH_TOKEN")

	cfg.SinkAddr = envString("SINK_ADDR", "127.0.0.1:2525")
	cfg.MailArchivePath = envString("MAIL_ARCHIVE_PATH", "./mail-archive")

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("CONTACT_COOLDOWN must be positive")
	}
	if c.OperationalLogLimit <= 0 || c.DisplayLogLimit <= 0 {
		return fmt.Errorf("contact log limits must be positive")
	}
	if c.OpsMailbox == "" || c.NoReplyAddress == "" {
		return fmt.Errorf("CONTACT_OPS_MAILBOX and CONTACT_NOREPLY_ADDRESS cannot be empty")
	}
	if c.MailTimeout <= 0 {
		return fmt.Errorf("MAIL_TIMEOUT must be positive")
	}

	switch c.MailTransport {
	case TransportSink:
		if c.SinkAddr == "" {
			return fmt.Errorf("SINK_ADDR is required for the sink transport")
		}
		if c.MailArchivePath == "" {
			return fmt.Errorf("MAIL_ARCHIVE_PATH cannot be empty")
		}
	case TransportSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp transport")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("SMTPPort must be between 1 and 65535")
		}
		switch c.SMTPTLS {
		case TLSModeStartTLS, TLSModeImplicit, TLSModeNone:
		default:
			return fmt.Errorf("SMTP_TLS must be one of starttls, tls, none")
		}
	case TransportGmail:
		if c.GmailClientID == "" || c.GmailClientSecret == "" || c.GmailRefreshToken == "" {
			return fmt.Errorf("GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN are required for the gmail transport")
		}
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be one of sink, smtp, gmail")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.MailTransport == TransportSink {
		return fmt.Errorf("MAIL_TRANSPORT=sink is not allowed in production")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries
func (c *Config) Origins() []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Bool("trust_proxy", c.TrustProxy),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Duration("cooldown", c.Cooldown),
		slog.Int("operational_log_limit", c.OperationalLogLimit),
		slog.Int("display_log_limit", c.DisplayLogLimit),
		slog.Bool("release_on_failure", c.ReleaseOnFailure),
		slog.String("mail_transport", c.MailTransport),
		slog.Duration("mail_timeout", c.MailTimeout),
		slog.String("retention_schedule", c.RetentionSchedule),
	)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}
