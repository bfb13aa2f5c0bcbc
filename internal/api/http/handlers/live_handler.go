package handlers

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/service"
)

const (
	liveActorKey = "live_actor"
	liveQueryKey = "live_query"
)

// LiveMessage is one frame of the live KPI feed.
type LiveMessage struct {
	Type    string                 `json:"type"`
	Trigger events.EventType       `json:"trigger,omitempty"`
	Data    *dto.KPIReportResponse `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// LiveHandler pushes a fresh KPI report to websocket clients after every
// ticket change.
type LiveHandler struct {
	kpi         *service.KPIService
	broadcaster *events.Broadcaster
	timeout     time.Duration
	logger      *zap.Logger
}

// NewLiveHandler constructs handler.
func NewLiveHandler(kpiService *service.KPIService, broadcaster *events.Broadcaster, timeout time.Duration, logger *zap.Logger) *LiveHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LiveHandler{kpi: kpiService, broadcaster: broadcaster, timeout: timeout, logger: logger}
}

// Upgrade rejects plain HTTP requests and captures the caller and query for
// the websocket session. It runs after authentication.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	query, err := parseKPIQuery(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c)
	// Scope errors are returned before the upgrade.
	if _, _, err := h.kpi.Report(c.UserContext(), actor, query); err != nil {
		return err
	}
	c.Locals(liveActorKey, actor)
	c.Locals(liveQueryKey, query)
	return c.Next()
}

// Stream GET /ws/kpi.
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	actor, _ := conn.Locals(liveActorKey).(domain.Actor)
	query, _ := conn.Locals(liveQueryKey).(service.KPIQuery)

	updates, cancel := h.broadcaster.Listen()
	defer cancel()

	// Reads only detect the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.push(conn, actor, query, ""); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case event, ok := <-updates:
			if !ok {
				return
			}
			if err := h.push(conn, actor, query, event.Type); err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) push(conn *websocket.Conn, actor domain.Actor, query service.KPIQuery, trigger events.EventType) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	msg := LiveMessage{Type: "kpi", Trigger: trigger}
	report, window, err := h.kpi.Report(ctx, actor, query)
	if err != nil {
		h.logger.Warn("live kpi recompute failed", zap.String("actor", actor.Email), zap.Error(err))
		msg.Type, msg.Error = "error", err.Error()
	} else {
		msg.Data = &dto.KPIReportResponse{Window: window, Report: report}
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("live kpi client gone", zap.String("actor", actor.Email), zap.Error(err))
		return err
	}
	return nil
}
