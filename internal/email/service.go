package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/opd-desk/internal/config"
)

type Service interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

var ErrNotConfigured = errors.New("smtp host not configured")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPService delivers plain-text mail through a single SMTP relay.
type SMTPService struct {
	dialer dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) (*SMTPService, error) {
	if cfg.Host == "" {
		return nil, ErrNotConfigured
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	return &SMTPService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (s *SMTPService) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return errors.New("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
