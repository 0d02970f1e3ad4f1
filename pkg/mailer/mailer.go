// Package mailer delivers recovery codes over SMTP through a pooled client.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"
)

// Config holds the SMTP settings for the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends recovery-code and probe emails through an SMTP connection pool.
type Mailer struct {
	pool *smtppool.Pool
	from string
}

// New connects the SMTP pool. Auth is skipped when no credentials are set so
// local relays and capture tools work out of the box.
func New(cfg Config) (*Mailer, error) {
	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        4,
		IdleTimeout:     15 * time.Second,
		PoolWaitTimeout: 10 * time.Second,
		Auth:            auth,
		TLSConfig:       &tls.Config{ServerName: cfg.Host},
	})
	if err != nil {
		return nil, err
	}

	return &Mailer{pool: pool, from: cfg.From}, nil
}

// SendRecoveryCode emails the recovery code to the account's address.
func (m *Mailer) SendRecoveryCode(ctx context.Context, to, code string) error {
	return m.send(ctx, smtppool.Email{
		From:    m.from,
		To:      []string{to},
		Subject: "Password recovery - your code",
		Text:    []byte(fmt.Sprintf("Your recovery code is: %s", code)),
		HTML: []byte(fmt.Sprintf(
			"<h2>Password Recovery</h2><p>Your recovery code is: <strong>%s</strong></p><p>Use this code to reset your password.</p>",
			code,
		)),
	})
}

// SendTestMessage sends a probe email so operators can verify the SMTP setup.
func (m *Mailer) SendTestMessage(ctx context.Context, to string) error {
	return m.send(ctx, smtppool.Email{
		From:    m.from,
		To:      []string{to},
		Subject: "Auth API test email",
		Text:    []byte("If you received this message, the email configuration works."),
	})
}

// Close tears down the SMTP connection pool.
func (m *Mailer) Close() {
	m.pool.Close()
}

// send runs the pooled send in a goroutine so the caller's deadline bounds
// the delivery attempt.
func (m *Mailer) send(ctx context.Context, email smtppool.Email) error {
	done := make(chan error, 1)
	go func() {
		done <- m.pool.Send(email)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier is a fallback notifier used when SMTP is not configured. It
// logs what would have been sent instead of failing hard, mirroring how the
// event producer degrades when the broker is unavailable.
type LogNotifier struct{}

func (LogNotifier) SendRecoveryCode(ctx context.Context, to, code string) error {
	log.Printf("[MAIL-FALLBACK] Would send recovery code %s to %s", code, to)
	return nil
}

func (LogNotifier) SendTestMessage(ctx context.Context, to string) error {
	log.Printf("[MAIL-FALLBACK] Would send test email to %s", to)
	return nil
}
