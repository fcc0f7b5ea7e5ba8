package notification

import (
	"gopkg.in/gomail.v2"
)

// Mailer sends HTML e-mails.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends e-mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer returns a nil Mailer when host is empty so callers can skip e-mail entirely.
func NewSMTPMailer(host string, port int, user, pass, from string) Mailer {
	if host == "" {
		return nil
	}
	if from == "" {
		from = user
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
