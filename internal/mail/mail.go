// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package mail delivers password-reset links. Two senders exist: SMTP
// for deployments and a log-only sender for local development.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/samber/oops"

	"github.com/rentnest/rentnest/internal/auth"
)

// SMTPSender sends reset links over SMTP with STARTTLS-capable PLAIN
// auth when credentials are set.
type SMTPSender struct {
	host     string
	port     string
	from     string
	username string
	password string
}

// SMTPOptions configures an SMTPSender.
type SMTPOptions struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// NewSMTPSender creates an SMTPSender. Host and From are required.
func NewSMTPSender(opts SMTPOptions) (*SMTPSender, error) {
	if opts.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if opts.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp from address is required")
	}
	port := opts.Port
	if port == "" {
		port = "587"
	}
	return &SMTPSender{
		host:     opts.Host,
		port:     port,
		from:     opts.From,
		username: opts.Username,
		password: opts.Password,
	}, nil
}

// SendResetLink sends a plain-text reset email to the given address.
func (s *SMTPSender) SendResetLink(_ context.Context, to, resetURL string) error {
	msg := buildResetMessage(s.from, to, resetURL)

	var a smtp.Auth
	if s.username != "" {
		a = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := net.JoinHostPort(s.host, s.port)
	if err := smtp.SendMail(addr, a, s.from, []string{to}, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("smtp_addr", addr).
			Wrap(err)
	}
	return nil
}

func buildResetMessage(from, to, resetURL string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Reset your RentNest password\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("A password reset was requested for your account.\r\n\r\n")
	fmt.Fprintf(&b, "Open the link below to choose a new password:\r\n\r\n%s\r\n\r\n", resetURL)
	b.WriteString("The link expires shortly. If you did not request this, ignore this email.\r\n")
	return []byte(b.String())
}

// LogSender logs reset links instead of sending them. The raw token is
// part of the URL, so this sender is for local development only.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendResetLink logs the reset link at info level.
func (s *LogSender) SendResetLink(ctx context.Context, to, resetURL string) error {
	s.logger.InfoContext(ctx, "password reset link (dev sender)",
		"to", to,
		"reset_url", resetURL,
	)
	return nil
}

var (
	_ auth.ResetSender = (*SMTPSender)(nil)
	_ auth.ResetSender = (*LogSender)(nil)
)
