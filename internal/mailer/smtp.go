package mailer

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

type SMTPConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	From               string
	InsecureSkipVerify bool
}

// SMTPMailer delivers mail through gomail. With no host configured it only
// logs what it would have sent.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *logrus.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *logrus.Logger) *SMTPMailer {
	m := &SMTPMailer{from: cfg.From, logger: logger}
	if cfg.Host == "" {
		return m
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	m.dialer = dialer
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.dialer == nil {
		m.logger.WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Info("SMTP disabled, skipping email")
		return nil
	}

	return m.dialer.DialAndSend(buildMessage(m.from, msg))
}

func buildMessage(from string, msg Message) *gomail.Message {
	message := gomail.NewMessage()
	message.SetHeader("From", from)
	message.SetHeader("To", msg.To...)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		message.AddAlternative("text/html", msg.HTML)
	}
	return message
}
