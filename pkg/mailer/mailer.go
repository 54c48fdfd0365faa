package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	FromName string `env:"SMTP_FROM_NAME" envDefault:"Rent Car Booking"`
}

func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse mailer config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("missing SMTP_HOST environment variable"))
	}
	if c.Port <= 0 {
		errs = append(errs, fmt.Errorf("invalid SMTP_PORT: %d", c.Port))
	}
	if c.From == "" {
		errs = append(errs, errors.New("missing SMTP_FROM environment variable"))
	}
	return errors.Join(errs...)
}

type Email struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a single e-mail.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type Mailer struct {
	config *Config
	dialer *gomail.Dialer
}

func New(cfg *Config) *Mailer {
	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send dials the SMTP server for each message. gomail has no context support,
// so cancellation only stops the caller from waiting.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if email.To == "" {
		return errors.New("no recipient specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.buildMessage(email)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", email.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) buildMessage(email Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.From, m.config.FromName)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.TextBody != "" {
			msg.AddAlternative("text/plain", email.TextBody)
		}
	} else {
		msg.SetBody("text/plain", email.TextBody)
	}
	return msg
}
