package smtp

import (
	"html"
	"io"
	"net/mail"
	"regexp"
	"strings"

	"github.com/exposingwithjay/cybersentinel-backend/internal/validator"
	"github.com/jhillyerd/enmime"
	"github.com/microcosm-cc/bluemonday"
)

// snippetLength caps the preview logged for each captured message
const snippetLength = 255

// headers copied onto CapturedMessage.Headers
var capturedHeaders = []string{
	"Reply-To",
	"X-Mailer",
	"X-Priority",
	"X-CyberSentinel-ID",
	"X-Auto-Response-Suppress",
	"Auto-Submitted",
}

var fromPattern = regexp.MustCompile(`^"?([^"<]*?)"?\s*<([^<>]+@[^<>]+)>$`)

var stripPolicy = bluemonday.StrictPolicy()

// CapturedMessage is a parsed message accepted by the sink
type CapturedMessage struct {
	EnvelopeFrom string
	Recipients   []string
	SenderEmail  string
	SenderName   string
	To           []string
	Subject      string
	Headers      map[string]string
	BodyText     string
	BodyHTML     string
	Snippet      string
	Attachments  int
	ArchivePath  string
	Size         int
}

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*CapturedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &CapturedMessage{
		Subject:     env.GetHeader("Subject"),
		BodyText:    env.Text,
		BodyHTML:    env.HTML,
		Headers:     make(map[string]string, len(capturedHeaders)),
		Attachments: len(env.Attachments),
	}

	parsed.SenderName, parsed.SenderEmail = parseFromHeader(env.GetHeader("From"))

	if list, err := env.AddressList("To"); err == nil {
		for _, addr := range list {
			parsed.To = append(parsed.To, addr.Address)
		}
	}

	for _, h := range capturedHeaders {
		if v := env.GetHeader(h); v != "" {
			parsed.Headers[h] = v
		}
	}

	parsed.Snippet = generateSnippet(parsed.BodyText, parsed.BodyHTML)

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Name, addr.Address
	}

	// Pattern: "Name" <email@example.com> or Name <email@example.com>
	matches := fromPattern.FindStringSubmatch(from)
	if len(matches) >= 3 {
		name = strings.Trim(strings.TrimSpace(matches[1]), `"`)
		email = strings.TrimSpace(matches[2])
		return name, email
	}

	// Fallback: treat entire string as email
	return "", from
}

// generateSnippet creates a one-line preview from the message body
func generateSnippet(bodyText, bodyHTML string) string {
	text := bodyText
	if text == "" && bodyHTML != "" {
		text = html.UnescapeString(stripPolicy.Sanitize(bodyHTML))
	}

	text = strings.Join(strings.Fields(text), " ")
	return validator.Truncate(text, snippetLength)
}
