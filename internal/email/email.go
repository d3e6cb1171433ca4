// Package email sends the messages of the points program.
//
// When credentials are configured, it uses STARTTLS and authentication.
// Without them it talks plain SMTP, which is what local mail catchers expect.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Config holds SMTP configuration.
type Config struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	// PerMinute caps outgoing messages. Zero disables the cap.
	PerMinute int `yaml:"per_minute"`
}

// Enabled returns true if SMTP is configured with at least a host.
func (c *Config) Enabled() bool {
	return c.Host != ""
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Username != "" && c.Password == "" {
		return errors.New("smtp: password is required with a username")
	}
	if c.PerMinute < 0 {
		return errors.New("smtp: per_minute must not be negative")
	}
	if c.Port == 0 {
		c.Port = 25
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	return nil
}

// Service sends email through an SMTP server.
type Service struct {
	config  Config
	limiter *rate.Limiter
}

// NewService returns an SMTP sender. c must have been validated.
func NewService(c Config) *Service {
	s := &Service{config: c}
	if c.PerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.PerMinute)), c.PerMinute)
	}
	return s
}

// Send sends an email, waiting for the rate limiter first.
func (s *Service) Send(ctx context.Context, from, to, subject, body string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	return s.sendMail(ctx, from, to, subject, body)
}

func (s *Service) sendMail(ctx context.Context, from, to, subject, body string) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if s.config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.config.Timeout))
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() {
		if err := client.Quit(); err != nil {
			slog.WarnContext(ctx, "SMTP quit failed", "err", err)
		}
	}()

	if s.config.Username != "" {
		tlsConfig := &tls.Config{
			ServerName: s.config.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(from, to, subject, body))); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	slog.InfoContext(ctx, "Email sent", "to", to, "subject", subject)
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("From: ")
	sb.WriteString(from)
	sb.WriteString("\r\n")
	sb.WriteString("To: ")
	sb.WriteString(to)
	sb.WriteString("\r\n")
	sb.WriteString("Subject: ")
	sb.WriteString(subject)
	sb.WriteString("\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

// LogSender logs messages instead of sending them. It is used when SMTP is
// not configured.
type LogSender struct{}

// Send logs the message envelope. The body is not logged as it may hold a
// password.
func (LogSender) Send(ctx context.Context, from, to, subject, _ string) error {
	slog.InfoContext(ctx, "Email not sent, SMTP is not configured", "from", from, "to", to, "subject", subject)
	return nil
}
