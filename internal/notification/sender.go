package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind selects the notification template.
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindComment    Kind = "comment"
	KindResolution Kind = "resolution"
)

// Notification is one message to the people following a ticket.
type Notification struct {
	Kind         Kind     `json:"kind"`
	Recipients   []string `json:"recipients"`
	Subject      string   `json:"subject"`
	TicketID     string   `json:"ticketId"`
	TicketNumber string   `json:"ticketNumber"`
	Message      string   `json:"message"`
	Actor        string   `json:"actor,omitempty"`
}

// Sender delivers notifications over one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the structured log. It is always wired so
// deliveries stay visible when no external channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.Strings("recipients", n.Recipients),
		zap.String("ticket_number", n.TicketNumber),
		zap.String("subject", n.Subject))
	return nil
}

// MultiSender fans a notification out to every channel concurrently.
type MultiSender struct {
	senders []Sender
}

// NewMultiSender combines senders; nil entries are skipped.
func NewMultiSender(senders ...Sender) *MultiSender {
	m := &MultiSender{}
	for _, s := range senders {
		if s != nil {
			m.senders = append(m.senders, s)
		}
	}
	return m
}

func (m *MultiSender) Name() string {
	names := make([]string, 0, len(m.senders))
	for _, s := range m.senders {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

// Send delivers through every channel and joins the failures.
func (m *MultiSender) Send(ctx context.Context, n Notification) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range m.senders {
		s := s
		g.Go(func() error {
			if err := s.Send(ctx, n); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
