package mail

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// SMTPSender delivers invitations over implicit-TLS SMTP.
type SMTPSender struct {
	cfg      SMTPConfig
	renderer *Renderer
}

// NewSMTPSender validates cfg and returns a sender.
func NewSMTPSender(cfg SMTPConfig, r *Renderer) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" || r == nil {
		return nil, ErrInvalidInput
	}
	if cfg.Port <= 0 {
		cfg.Port = 465
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPSender{cfg: cfg, renderer: r}, nil
}

// Send renders inv and delivers it. Errors wrap ErrDelivery.
func (s *SMTPSender) Send(ctx context.Context, inv Invitation) error {
	body, err := s.renderer.Render(inv)
	if err != nil {
		return fmt.Errorf("%w: render: %v", ErrDelivery, err)
	}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("%w: from: %v", ErrDelivery, err)
	}
	if err := m.To(inv.To); err != nil {
		return fmt.Errorf("%w: to: %v", ErrDelivery, err)
	}
	m.Subject(s.cfg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, body)

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSSL(),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	c, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: client: %v", ErrDelivery, err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// LogSender is used when SMTP is not configured; it only renders.
type LogSender struct {
	Renderer *Renderer
}

func (s LogSender) Send(_ context.Context, inv Invitation) error {
	if s.Renderer == nil {
		return nil
	}
	_, err := s.Renderer.Render(inv)
	return err
}
