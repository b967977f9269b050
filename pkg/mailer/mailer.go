package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"
)

// Message is an HTML mail addressed to one or more recipients.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config carries SMTP settings. An empty Host selects the log-only sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SkipTLS  bool
}

// New returns an SMTP sender, or a sender that only logs when SMTP is not configured.
func New(cfg Config, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" || cfg.From == "" {
		logger.Warn("smtp not configured, mail will be logged only")
		return &LogSender{logger: logger}
	}
	return NewSMTPSender(cfg)
}

// SMTPSender delivers mail over SMTP with mandatory STARTTLS.
type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPSender builds a dialer from cfg.
func NewSMTPSender(cfg Config) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLS, //nolint:gosec
	}
	return &SMTPSender{dialer: d, from: cfg.From}
}

// Send dials the server and delivers msg. The context is checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}

// LogSender records messages instead of sending them.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the recipients and subject. The body is omitted since it may hold credentials.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("mail delivery skipped", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
