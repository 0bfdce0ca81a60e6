package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/docket/internal/core/domain"
)

// EmailConfig holds SMTP settings. Email is disabled when Host is empty.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && len(c.To) > 0
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails notifications to a fixed recipient list.
// Log-only notifications are skipped.
type EmailNotifier struct {
	cfg  EmailConfig
	send sendFunc
	now  func() time.Time
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("email notifier needs host, from and at least one recipient")
	}
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail, now: time.Now}, nil
}

// Notify implements Notifier.
func (e *EmailNotifier) Notify(ctx context.Context, n domain.Notification) error {
	if n.LogOnly {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := e.send(addr, auth, e.cfg.From, e.cfg.To, e.message(n)); err != nil {
		return fmt.Errorf("failed to send email %q: %w", n.Subject, err)
	}
	return nil
}

func (e *EmailNotifier) message(n domain.Notification) []byte {
	subject := n.Subject
	if n.Severity == domain.SeverityError {
		subject = "[ERROR] " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Message, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
