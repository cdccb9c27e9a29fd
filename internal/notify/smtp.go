package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers notifications by email. Every send is bounded by the
// context deadline, including the dial.
type SMTPSender struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewSMTPSender validates cfg and returns a sender. STARTTLS is used when the
// server offers it.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Server == "" {
		return nil, errors.New("smtp server is not configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{cfg: cfg, client: client}, nil
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, n Notification) error {
	msg, err := buildMessage(s.cfg.From, n, time.Now())
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func buildMessage(from string, n Notification, now time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(n.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", n.To, err)
	}
	msg.Subject(n.Subject)
	msg.SetDateWithValue(now)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)
	return msg, nil
}

// LogSender writes notifications to a function instead of sending them.
type LogSender func(n Notification)

// Send implements Sender.
func (f LogSender) Send(_ context.Context, n Notification) error {
	f(n)
	return nil
}
