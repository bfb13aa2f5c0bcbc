package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var assigned, all []EventType

	d.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		assigned = append(assigned, e.Type)
		return nil
	})
	d.Subscribe(EventAny, func(_ context.Context, e Event) error {
		all = append(all, e.Type)
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventCommentAdded}))

	assert.Equal(t, []EventType{EventTicketAssigned}, assigned)
	assert.Equal(t, []EventType{EventTicketAssigned, EventCommentAdded}, all)
}

func TestInMemoryDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	called := false
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error { return errors.New("boom") })
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		called = true
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.True(t, called)
}

func TestEventWireFormat(t *testing.T) {
	in := Event{
		ID:        "e-1",
		Type:      EventTicketUpdated,
		TicketID:  "t-1",
		Actor:     Actor{Name: "Ana", Email: "ana@example.com", Role: "admin"},
		Timestamp: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		Payload:   map[string]any{"status": "Resolved"},
	}
	raw, err := encodeEvent(in)
	require.NoError(t, err)

	out, err := decodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeEvent([]byte(`{"id":"x"}`))
	assert.Error(t, err)
	_, err = decodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
