package notification

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSender struct {
	name  string
	err   error
	calls atomic.Int32
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(context.Context, Notification) error {
	s.calls.Add(1)
	return s.err
}

func TestMultiSenderJoinsFailures(t *testing.T) {
	ok := &stubSender{name: "ok"}
	bad := &stubSender{name: "bad", err: errors.New("relay down")}
	m := NewMultiSender(ok, nil, bad, NewLogSender(zap.NewNop()))

	err := m.Send(context.Background(), Notification{Kind: KindComment, Recipients: []string{"a@example.com"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: relay down")
	assert.EqualValues(t, 1, ok.calls.Load())
	assert.EqualValues(t, 1, bad.calls.Load())
	assert.Equal(t, "ok,bad,log", m.Name())
}

func TestMultiSenderSucceedsWhenAllSucceed(t *testing.T) {
	m := NewMultiSender(&stubSender{name: "a"}, &stubSender{name: "b"})
	assert.NoError(t, m.Send(context.Background(), Notification{}))
}

func TestBuildMessage(t *testing.T) {
	m := buildMessage("desk@example.com", Notification{
		Recipients:   []string{"req@example.com", "agent@example.com"},
		Subject:      "Ticket IN100000 updated",
		TicketNumber: "IN100000",
		Message:      "<p>Status changed</p>",
	})

	assert.Equal(t, []string{"req@example.com", "agent@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Ticket IN100000 updated"}, m.GetHeader("Subject"))

	var sb strings.Builder
	_, err := m.WriteTo(&sb)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "Status changed")
}

func TestWebhookSender(t *testing.T) {
	var received atomic.Value
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/hook", func(c *fiber.Ctx) error {
		var n Notification
		if err := c.BodyParser(&n); err != nil {
			return err
		}
		received.Store(n)
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("nope")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	base := "http://" + ln.Addr().String()

	sender := NewWebhookSender(base+"/hook", 2*time.Second)
	require.NoError(t, sender.Send(context.Background(), Notification{Kind: KindAssignment, TicketNumber: "SR200001"}))
	got, _ := received.Load().(Notification)
	assert.Equal(t, "SR200001", got.TicketNumber)
	assert.Equal(t, KindAssignment, got.Kind)

	err = NewWebhookSender(base+"/broken", 2*time.Second).Send(context.Background(), Notification{})
	assert.ErrorContains(t, err, "unexpected status 500")
}
