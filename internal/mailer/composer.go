package mailer

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/jhillyerd/enmime"
)

// Header values stamped on outbound mail
const (
	SubjectPrefix       = "[CyberSentinel] "
	UrgentMarker        = "[URGENT] "
	AutoReplySubject    = "[CyberSentinel] Thank you for contacting us - Message Received"
	ContactFormName     = "CyberSentinel Contact Form"
	SupportName         = "CyberSentinel Support"
	PrimaryMailer       = "CyberSentinel Contact System"
	AutoReplyMailer     = "CyberSentinel Auto-Reply System"
	TimestampLayout     = "2006-01-02 15:04:05 MST"
	DefaultContactPage  = "https://exposingwithjay.store/contact.html"
	priorityUrgent      = "1"
	priorityNormal      = "3"
	headerMailer        = "X-Mailer"
	headerPriority      = "X-Priority"
	headerSubmissionID  = "X-CyberSentinel-ID"
	headerAutoSuppress  = "X-Auto-Response-Suppress"
	headerAutoSubmitted = "Auto-Submitted"
)

// Report is a sanitized, validated submission ready to be mailed
type Report struct {
	ID          string
	Name        string
	Email       string
	Subject     string
	Message     string
	Urgent      bool
	Anonymous   bool
	ClientIP    string
	SubmittedAt time.Time
}

// DisplayName returns the name shown to staff, masked when anonymous
func (r *Report) DisplayName() string {
	if r.Anonymous {
		return models.AnonymousName
	}
	return r.Name
}

// DisplayEmail returns the address shown to staff, masked when anonymous
func (r *Report) DisplayEmail() string {
	if r.Anonymous {
		return models.AnonymousEmail
	}
	return r.Email
}

// Composer builds the primary notification and the auto-reply
type Composer struct {
	OpsMailbox     string
	NoReplyAddress string
	ContactPage    string
}

// NewComposer creates a Composer for the given mailboxes
func NewComposer(opsMailbox, noReplyAddress string) *Composer {
	return &Composer{
		OpsMailbox:     opsMailbox,
		NoReplyAddress: noReplyAddress,
		ContactPage:    DefaultContactPage,
	}
}

var primaryBody = template.Must(template.New("primary").Parse(`New contact form submission from CyberSentinel website:

Name: {{.Report.DisplayName}}
Email: {{.Report.DisplayEmail}}
Subject: {{.Report.Subject}}
Urgent: {{if .Report.Urgent}}Yes{{else}}No{{end}}
Anonymous: {{if .Report.Anonymous}}Yes{{else}}No{{end}}
Submitted: {{.Submitted}}
IP Address: {{.Report.ClientIP}}

Message:
{{.Report.Message}}

---
This message was sent via the CyberSentinel contact form.
Reply directly to this email to respond to the sender.
`))

var autoReplyBody = template.Must(template.New("auto_reply").Parse(`Dear {{.Report.Name}},

Thank you for contacting CyberSentinel. We have received your message and wanted to confirm that it has been successfully submitted to our team.

MESSAGE DETAILS:
Subject: {{.Report.Subject}}
Submitted: {{.Submitted}}
Priority: {{if .Report.Urgent}}URGENT - High Priority{{else}}Standard Priority{{end}}

WHAT HAPPENS NEXT:
• Your message has been forwarded to our support team at {{.OpsMailbox}}
• We typically respond within 24-48 hours during business days
• {{if .Report.Urgent}}Due to the urgent nature of your message, we will prioritize your request{{else}}We will review your message and respond as soon as possible{{end}}
• If you need immediate assistance for emergency situations, please contact local authorities first (911)

IMPORTANT REMINDERS:
• Please do not reply to this automated message
• If you need to add additional information, please submit a new contact form
• For urgent matters involving immediate danger, contact emergency services immediately

Thank you for helping us protect children online. Your report and support make a difference.

Best regards,
The CyberSentinel Team
ExposingWithJay

---
This is an automated response from the CyberSentinel contact system.
For support, visit: {{.ContactPage}}
`))

type bodyData struct {
	Report      *Report
	Submitted   string
	OpsMailbox  string
	ContactPage string
}

func (c *Composer) render(t *template.Template, r *Report) ([]byte, error) {
	var buf bytes.Buffer
	err := t.Execute(&buf, bodyData{
		Report:      r,
		Submitted:   r.SubmittedAt.Format(TimestampLayout),
		OpsMailbox:  c.OpsMailbox,
		ContactPage: c.ContactPage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s body: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

// PrimarySubject returns the subject line of the staff notification
func PrimarySubject(r *Report) string {
	if r.Urgent {
		return SubjectPrefix + UrgentMarker + r.Subject
	}
	return SubjectPrefix + r.Subject
}

// Primary builds the notification sent to the operations mailbox
func (c *Composer) Primary(r *Report) (*Envelope, error) {
	body, err := c.render(primaryBody, r)
	if err != nil {
		return nil, err
	}

	replyTo := r.Email
	if r.Anonymous {
		replyTo = c.NoReplyAddress
	}
	priority := priorityNormal
	if r.Urgent {
		priority = priorityUrgent
	}

	part, err := enmime.Builder().
		From(ContactFormName, c.NoReplyAddress).
		To("", c.OpsMailbox).
		ReplyTo("", replyTo).
		Subject(PrimarySubject(r)).
		Date(r.SubmittedAt).
		Header(headerMailer, PrimaryMailer).
		Header(headerPriority, priority).
		Header(headerSubmissionID, r.ID).
		Text(body).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build primary notification: %w", err)
	}

	return encode(KindPrimary, c.NoReplyAddress, []string{c.OpsMailbox}, part)
}

// AutoReply builds the acknowledgment sent back to the submitter.
// Anonymous reports have no address to reply to.
func (c *Composer) AutoReply(r *Report) (*Envelope, error) {
	if r.Anonymous {
		return nil, fmt.Errorf("auto-reply requested for anonymous report %s", r.ID)
	}

	body, err := c.render(autoReplyBody, r)
	if err != nil {
		return nil, err
	}

	part, err := enmime.Builder().
		From(SupportName, c.NoReplyAddress).
		To(r.Name, r.Email).
		ReplyTo("", c.OpsMailbox).
		Subject(AutoReplySubject).
		Date(r.SubmittedAt).
		Header(headerMailer, AutoReplyMailer).
		Header(headerAutoSuppress, "All").
		Header(headerAutoSubmitted, "auto-replied").
		Header(headerSubmissionID, r.ID).
		Text(body).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build auto-reply: %w", err)
	}

	return encode(KindAutoReply, c.NoReplyAddress, []string{r.Email}, part)
}

func encode(kind, from string, to []string, part *enmime.Part) (*Envelope, error) {
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", kind, err)
	}
	return &Envelope{
		Kind: kind,
		From: from,
		To:   to,
		Raw:  buf.Bytes(),
	}, nil
}
