package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mail "gopkg.in/mail.v2"
)

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPSender delivers messages through an SMTP relay, retrying transient
// failures with a linear backoff.
type SMTPSender struct {
	dialer  dialer
	from    string
	backoff time.Duration
	logger  *slog.Logger
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	return &SMTPSender{
		dialer:  d,
		from:    cfg.From,
		backoff: time.Second,
		logger:  logger,
	}
}

// Send delivers msg. Between attempts it honours ctx cancellation.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := s.buildMessage(msg)

	var err error
	for i := 1; i <= maxRetries; i++ {
		if err = s.dialer.DialAndSend(m); err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "email send attempt failed",
			slog.Int("attempt", i),
			slog.Int("max_retries", maxRetries),
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		if i == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("send email after %d attempts: %w", maxRetries, err)
}

func (s *SMTPSender) buildMessage(msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", s.from, FromName)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}

// LogSender writes messages to the log instead of delivering them. It is
// used when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email delivery disabled, logging message",
		slog.String("to", msg.To),
		slog.String("reply_to", msg.ReplyTo),
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.Text)),
	)
	return nil
}
