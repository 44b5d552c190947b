// Package mail sends transactional emails over SMTP
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

var ErrSelfAddressed = errors.New("refusing to send mail to the sender address")

const verificationSubject = "Verify your email address"

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTP(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// FromConfig builds a mailer from mail.*, nil when mail is disabled
func FromConfig() *SMTPMailer {
	if !viper.GetBool("mail.enabled") {
		return nil
	}

	username := viper.GetString("mail.username")
	if username == "" {
		username = viper.GetString("mail.sender")
	}

	return NewSMTP(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		username,
		viper.GetString("mail.password"),
		viper.GetString("mail.sender"),
	)
}

func verificationBody(link string) string {
	return fmt.Sprintf("Click <a href='%v'>here</a> to verify your email address.\n\nThis link will expire in 1 hour", link)
}

func (m *SMTPMailer) verificationMessage(to, link string) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", verificationSubject)
	msg.SetBody("text/html", verificationBody(link))

	return msg
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, link string) error {
	if to == m.from {
		return ErrSelfAddressed
	}

	msg := m.verificationMessage(to, link)

	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
