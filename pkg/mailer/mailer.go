package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/solarflow/solarshop-backend/pkg/config"
	"github.com/solarflow/solarshop-backend/pkg/logger"
)

// Attachment is an in-memory file added to a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a plain-text email.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when a host is configured and a log-only mailer otherwise.
func New(cfg config.MailConfig, logg *logger.Logger) (Mailer, error) {
	if !cfg.Enabled() {
		return &logMailer{logg: logg}, nil
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

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &smtpMailer{client: client, from: cfg.From, fromName: cfg.FromName, logg: logg}, nil
}

type smtpMailer struct {
	client   *mail.Client
	from     string
	fromName string
	logg     *logger.Logger
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	built, err := buildMessage(m.fromName, m.from, msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, built); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"subject":    msg.Subject,
		"recipients": len(msg.To),
	}), "mail sent")
	return nil
}

func buildMessage(fromName, from string, msg Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("mail recipient required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, errors.New("mail subject required")
	}

	m := mail.NewMsg()
	if fromName != "" {
		if err := m.FromFormat(fromName, from); err != nil {
			return nil, fmt.Errorf("set from: %w", err)
		}
	} else if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		if len(a.Data) == 0 {
			continue
		}
		m.AttachReadSeeker(a.Name, bytes.NewReader(a.Data))
	}
	return m, nil
}

type logMailer struct {
	logg *logger.Logger
}

func (m *logMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail recipient required")
	}
	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"subject":     msg.Subject,
		"recipients":  strings.Join(msg.To, ","),
		"attachments": len(msg.Attachments),
	}), "mail disabled; message logged")
	return nil
}
