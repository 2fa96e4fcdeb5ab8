// Package mailer sends HTML digest email over SMTP with STARTTLS.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jobsift/jobsift/config"
)

// Mailer delivers a single HTML message per call. Connections are not
// pooled; digest volume is one message per pipeline run.
type Mailer struct {
	host      string
	port      int
	username  string
	password  string
	sender    string
	recipient string
}

// New builds a mailer from digest configuration.
func New(cfg config.DigestConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("mailer requires smtp host, sender, and recipient")
	}
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.Username,
		password:  cfg.Password,
		sender:    cfg.Sender,
		recipient: cfg.Recipient,
	}, nil
}

// Send delivers the HTML body to the configured recipient. The context
// bounds connection establishment; SMTP conversation then runs to
// completion.
func (m *Mailer) Send(ctx context.Context, subject, htmlBody string) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if m.username != "" {
		auth := smtp.PlainAuth("", m.username, m.password, m.host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.recipient); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(BuildMessage(m.sender, m.recipient, subject, htmlBody)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	return c.Quit()
}

// BuildMessage assembles the RFC 5322 message bytes for an HTML email.
func BuildMessage(sender, recipient, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n",
		sender, recipient, mime.QEncoding.Encode("utf-8", subject))
	return append([]byte(headers), []byte(htmlBody)...)
}
