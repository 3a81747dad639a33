package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/example/todo-evolution/config"
	"github.com/go-mail/mail/v2"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// sendAttempts is how many times a message is dialed before giving up.
const sendAttempts = 3

// Message is a rendered email.
type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// render executes the subject, plainBody and htmlBody blocks of a template file.
func render(to, file string, data any) (Message, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+file)
	if err != nil {
		return Message{}, fmt.Errorf("parse template %s: %w", file, err)
	}

	var subject, plainBody, htmlBody bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Message{}, err
	}
	if err := tmpl.ExecuteTemplate(&plainBody, "plainBody", data); err != nil {
		return Message{}, err
	}
	if err := tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data); err != nil {
		return Message{}, err
	}

	return Message{
		To:        to,
		Subject:   subject.String(),
		PlainBody: plainBody.String(),
		HTMLBody:  htmlBody.String(),
	}, nil
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer *mail.Dialer
	sender string
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg := mail.NewMessage()
	msg.SetHeader("To", m.To)
	msg.SetHeader("From", s.sender)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.PlainBody)
	msg.AddAlternative("text/html", m.HTMLBody)

	var err error
	for i := 0; i < sendAttempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = s.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
	}
	return fmt.Errorf("send mail to %s after %d attempts: %w", m.To, sendAttempts, err)
}
