// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
	"github.com/wneessen/go-mail/smtp"
)

// SMTPConfig holds the connection parameters of an SMTP relay.
type SMTPConfig struct {
	Host string
	Port int
	// Security enables implicit TLS. Otherwise, STARTTLS is used if the
	// server offers it.
	Security bool
	// Username and Password enable authentication if both are set. The
	// mechanism is picked from the ones the relay advertises.
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// SMTPSink delivers alerts as plain text emails. Every message is sent over
// a fresh connection.
type SMTPSink struct {
	config SMTPConfig

	mu     sync.Mutex
	client *mail.Client
}

var _ Sink = (*SMTPSink)(nil)

// NewSMTPSink creates a sink for the given relay.
func NewSMTPSink(config SMTPConfig) (*SMTPSink, error) {
	if len(config.To) == 0 {
		return nil, errors.New("no recipients configured")
	}

	opts := []mail.Option{mail.WithPort(config.Port)}
	if config.Security {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuthCustom(&relayAuth{
				host:     config.Host,
				username: config.Username,
				password: config.Password,
			}),
		)
	}
	if config.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(config.Timeout))
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client for %s:%d: %w", config.Host, config.Port, err)
	}

	return &SMTPSink{config: config, client: client}, nil
}

// Deliver implements [Sink].
func (s *SMTPSink) Deliver(ctx context.Context, msg Message) error {
	m, err := s.newMsg(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email via %s:%d: %w", s.config.Host, s.config.Port, err)
	}
	return nil
}

func (s *SMTPSink) newMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.config.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.config.From, err)
	}
	if err := m.To(s.config.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients %q: %w", s.config.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// Authentication mechanisms in order of preference.
var authMechanisms = []string{"SCRAM-SHA-256", "SCRAM-SHA-1", "CRAM-MD5", "PLAIN", "LOGIN"}

// relayAuth authenticates with the first mechanism from authMechanisms that
// the relay advertises. PLAIN is tried if the relay advertises nothing.
// PLAIN and LOGIN are used on unencrypted connections, too.
type relayAuth struct {
	host, username, password string

	mech smtp.Auth
}

var _ smtp.Auth = (*relayAuth)(nil)

func (a *relayAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	mech, err := selectAuthMechanism(server.Auth)
	if err != nil {
		return "", nil, err
	}

	switch mech {
	case "SCRAM-SHA-256":
		a.mech = smtp.ScramSHA256Auth(a.username, a.password)
	case "SCRAM-SHA-1":
		a.mech = smtp.ScramSHA1Auth(a.username, a.password)
	case "CRAM-MD5":
		a.mech = smtp.CRAMMD5Auth(a.username, a.password)
	case "PLAIN":
		a.mech = smtp.PlainAuth("", a.username, a.password, a.host, true)
	case "LOGIN":
		a.mech = smtp.LoginAuth(a.username, a.password, a.host, true)
	}

	return a.mech.Start(server)
}

func (a *relayAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if a.mech == nil {
		return nil, errors.New("authentication not started")
	}
	return a.mech.Next(fromServer, more)
}

func selectAuthMechanism(advertised []string) (string, error) {
	if len(advertised) == 0 {
		return "PLAIN", nil
	}
	for _, mech := range authMechanisms {
		if slices.ContainsFunc(advertised, func(a string) bool { return strings.EqualFold(a, mech) }) {
			return mech, nil
		}
	}
	return "", fmt.Errorf("no supported SMTP AUTH mechanism offered, got %s", strings.Join(advertised, " "))
}
