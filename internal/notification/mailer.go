package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"staybook/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string // ssl, starttls or none
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
	log    *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig, log *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, errors.New("SMTP host, port and sender address must be configured")
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	switch strings.ToLower(cfg.Encryption) {
	case "ssl":
		d.SSL = true
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	case "tls", "starttls":
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}

	return &SMTPMailer{from: cfg.From, dialer: d, log: log}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return errors.New("no recipients provided for email")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Body)

	// gomail has no context support; give up waiting when ctx ends
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	m.log.Info("email sent", zap.Strings("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	m.log.Info("email (not sent, SMTP disabled)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Body),
	)
	return nil
}

// NewMailerFromConfig returns an SMTP mailer, or a LogMailer when no SMTP
// host is configured.
func NewMailerFromConfig(cfg config.SMTPConfig, log *zap.Logger) (Mailer, error) {
	if cfg.Host == "" {
		log.Info("smtp not configured, emails are logged only")
		return NewLogMailer(log), nil
	}
	m, err := NewSMTPMailer(SMTPConfig{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Username:   cfg.Username,
		Password:   cfg.Password,
		From:       cfg.From,
		Encryption: cfg.Encryption,
	}, log)
	if err != nil {
		return nil, err
	}
	return m, nil
}
