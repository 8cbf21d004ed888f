package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

var (
	ErrMissingHost      = errors.New("smtp host required")
	ErrMissingSender    = errors.New("smtp sender required")
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username.
	From  string
	Brand string
}

type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTP implements goAccount.Mailer.
type SMTP struct {
	cfg  Config
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// NewSMTP validates cfg and fills in its defaults.
func NewSMTP(cfg Config) (*SMTP, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, ErrMissingHost
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, ErrMissingSender
	}
	if cfg.Brand == "" {
		cfg.Brand = "HINT Bharat"
	}

	m := &SMTP{cfg: cfg, now: time.Now}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	if cfg.Port == 465 {
		m.send = sendImplicitTLS
	} else {
		m.send = sendStartTLS
	}
	return m, nil
}

// Send renders the verification template and delivers it to msg.Recipient.
func (m *SMTP) Send(ctx context.Context, msg goAccount.Message) error {
	if strings.ContainsAny(msg.Recipient, "\r\n") || !strings.Contains(msg.Recipient, "@") {
		return ErrInvalidRecipient
	}

	body, err := renderVerification(templateData{
		Brand: m.cfg.Brand,
		Code:  msg.Code,
		Year:  m.now().Year(),
	})
	if err != nil {
		return fmt.Errorf("render verification mail: %w", err)
	}

	raw := buildMessage(m.cfg.From, msg.Recipient, msg.Subject, body)
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(ctx, addr, m.auth, m.cfg.From, []string{msg.Recipient}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject string, html []byte) []byte {
	var b bytes.Buffer
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.Write(html)
	b.WriteString("\r\n")
	return b.Bytes()
}

// sendStartTLS uses smtp.SendMail, which upgrades with STARTTLS when the
// server offers it. It cannot observe ctx once dialed.
func sendStartTLS(_ context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	return smtp.SendMail(addr, auth, from, to, msg)
}

func sendImplicitTLS(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
