// Package notify tells operators about new leads and failed CRM deliveries by
// email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"gopkg.in/gomail.v2"

	"github.com/tbourn/vibe-compass/internal/domain"
)

var leadTemplate = template.Must(template.New("lead").Parse(`New lead from the funnel

{{range .P.Fields}}{{printf "%-15s" (index . 0)}} {{index . 1}}
{{end}}
crm             {{if .Out.LoggedOnly}}not configured, lead logged only{{else if .Out.Success}}delivered{{else}}FAILED: {{.Out.Detail}}{{end}}
`))

// Mailer sends one plain-text email per dispatch attempt.
type Mailer struct {
	From string
	To   []string

	send func(ctx context.Context, msg *gomail.Message) error
}

// NewMailer returns a Mailer that sends through host:port with the given
// credentials.
func NewMailer(host string, port int, user, password, from string, to []string) *Mailer {
	s := &smtpSender{Host: host, Port: port, User: user, Password: password}
	return &Mailer{
		From: from,
		To:   to,
		send: s.Send,
	}
}

// NotifyLead implements services.Notifier. The SMTP exchange is aborted when
// ctx is done.
func (m *Mailer) NotifyLead(ctx context.Context, p domain.LeadPayload, out domain.DispatchOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.message(p, out)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}

func (m *Mailer) message(p domain.LeadPayload, out domain.DispatchOutcome) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := leadTemplate.Execute(&body, struct {
		P   domain.LeadPayload
		Out domain.DispatchOutcome
	}{p, out}); err != nil {
		return nil, fmt.Errorf("notify: render template: %w", err)
	}

	subject := "New lead: " + p.Name
	if !out.Success {
		subject = "Lead delivery failed: " + p.Name
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body.String())
	return msg, nil
}
