package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v3"

	"github.com/sudo-init-do/linkhub/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks the provider named by MAIL_PROVIDER. Unknown or
// unconfigured providers fall back to logging.
func NewMailer(cfg config.MailConfig) Mailer {
	switch cfg.Provider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			log.Println("[mail] mailgun selected but MAILGUN_DOMAIN/MAILGUN_API_KEY missing, logging emails instead")
			return LogMailer{}
		}
		return &MailgunMailer{
			mg:      mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
			from:    cfg.From,
			replyTo: cfg.ReplyTo,
		}
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPUsername == "" || cfg.SMTPPassword == "" {
			log.Println("[mail] smtp not configured, logging emails instead")
			return LogMailer{}
		}
		return &SMTPMailer{cfg: cfg}
	}
	return LogMailer{}
}

// LogMailer writes emails to the log. Used in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("[mail] (log) to=%s subject=%q", to, subject)
	return nil
}

type MailgunMailer struct {
	mg      mailgun.Mailgun
	from    string
	replyTo string
}

func (m *MailgunMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := m.mg.NewMessage(fmt.Sprintf("LinkHub <%s>", m.from), subject, body, to)
	if isHTML(body) {
		msg.SetHtml(body)
	}
	if m.replyTo != "" {
		msg.AddHeader("Reply-To", m.replyTo)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, _, err := m.mg.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

// SMTPMailer sends plain text or HTML mail over implicit TLS.
type SMTPMailer struct {
	cfg config.MailConfig
}

func isHTML(body string) bool {
	lb := strings.ToLower(body)
	return strings.Contains(lb, "<html") || strings.Contains(lb, "<body") || strings.Contains(lb, "<!doctype html")
}

func buildMessage(from, replyTo, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	if replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", replyTo)
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	contentType := "text/plain"
	if isHTML(body) {
		contentType = "text/html"
	}
	fmt.Fprintf(&b, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	b.WriteString("\r\n" + body + "\r\n")
	return b.String()
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	cfg := m.cfg
	msg := buildMessage(cfg.From, cfg.ReplyTo, to, subject, body)

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: cfg.SMTPHost}}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.SMTPHost+":"+cfg.SMTPPort)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return c.Quit()
}
