package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookSender posts notifications as JSON to an HTTP endpoint.
type WebhookSender struct {
	url     string
	timeout time.Duration
}

// NewWebhookSender creates a sender for url.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{url: url, timeout: timeout}
}

func (s *WebhookSender) Name() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout || timeout <= 0 {
			timeout = remaining
		}
	}

	agent := fiber.Post(s.url)
	agent.JSON(n)
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook post: %w", errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook post: unexpected status %d: %s", status, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
