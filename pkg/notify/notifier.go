// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers alert messages to a notification sink.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/sirupsen/logrus"
)

// Message is a formatted alert.
type Message struct {
	Subject string
	Body    string
}

// Sink is the destination alerts are delivered to, e.g. an email relay.
// Implementations must be safe for concurrent use.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, msg Message) error

// Deliver implements [Sink].
func (f SinkFunc) Deliver(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// DeliveryError indicates that an alert couldn't be delivered.
type DeliveryError struct {
	Subject string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %q: %v", e.Subject, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Notifier sends alerts through a Sink. It never panics past its boundary:
// every failure is reported as a *DeliveryError.
type Notifier struct {
	sink     Sink
	attempts uint
	delay    time.Duration
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithRetries makes the Notifier try delivery up to attempts times, waiting
// delay in between.
func WithRetries(attempts uint, delay time.Duration) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.attempts = attempts
		}
		n.delay = delay
	}
}

// New creates a Notifier that delivers to sink.
func New(sink Sink, opts ...Option) *Notifier {
	n := &Notifier{sink: sink, attempts: 1}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send delivers an alert with the given subject and body.
func (n *Notifier) Send(ctx context.Context, subject, body string) error {
	msg := Message{Subject: subject, Body: body}

	err := retry.Do(
		func() error { return n.deliver(ctx, msg) },
		retry.Attempts(n.attempts),
		retry.Delay(n.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			logrus.WithError(err).WithField("subject", subject).Debugf("Failed to deliver alert in attempt #%d", attempt+1)
		}),
	)
	if err != nil {
		return &DeliveryError{Subject: subject, Err: err}
	}

	return nil
}

func (n *Notifier) deliver(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification sink panicked: %v", r)
		}
	}()

	if n.sink == nil {
		return errors.New("no notification sink configured")
	}

	return n.sink.Deliver(ctx, msg)
}
