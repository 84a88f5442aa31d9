package mail

import (
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sender hands a rendered message to the mail transport.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers over plain SMTP with optional auth.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	log  *zap.Logger
}

func NewSMTPSender(host string, port int, user, pass, from string, log *zap.Logger) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		log:  log.Named("mailer"),
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return errors.Wrap(err, "send mail")
	}
	s.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
