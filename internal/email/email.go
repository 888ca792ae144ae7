package email

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Provider sends transactional mail. Services treat delivery as best-effort:
// a failed send is logged and never fails the triggering request.
type Provider interface {
	Send(msg *Message) error
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

type SMTPProvider struct {
	cfg *SMTPConfig
}

func NewSMTPProvider(cfg *SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.cfg.FromEmail, p.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	d := gomail.NewDialer(p.cfg.Host, p.cfg.Port, p.cfg.Username, p.cfg.Password)

	return d.DialAndSend(m)
}

// TemplateData feeds the built-in templates.
type TemplateData map[string]interface{}

var templates = template.Must(template.New("email").Parse(`
{{define "password_reset"}}
<p>Hello,</p>
<p>We received a request to reset your password. Click the link below to choose a new one. The link expires in {{.ExpiresIn}}.</p>
<p><a href="{{.ResetURL}}">Reset your password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
{{end}}

{{define "email_verification"}}
<p>Hello,</p>
<p>Please confirm your email address by clicking the link below.</p>
<p><a href="{{.VerifyURL}}">Verify your email</a></p>
{{end}}

{{define "purchase_receipt"}}
<p>Thank you for your purchase.</p>
<p><strong>{{.SessionTitle}}</strong></p>
<p>Amount paid: {{.Amount}} {{.Currency}}</p>
<p>You can access your session from your dashboard at any time:</p>
<p><a href="{{.DashboardURL}}">Go to dashboard</a></p>
{{end}}

{{define "booking_received"}}
<p>Hello {{.Name}},</p>
<p>We received your booking request for <strong>{{.SessionTitle}}</strong> on {{.ScheduledAt}}.</p>
<p>We will confirm your slot shortly.</p>
{{end}}
`))

// Render executes one of the built-in templates.
func Render(name string, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %q: %w", name, err)
	}
	return buf.String(), nil
}
