package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"kora-games/internal/app"
	"kora-games/internal/domain"
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service *app.GameService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	OptionID string `json:"optionId"`
}

type levelPayload struct {
	ComponentID string `json:"componentId"`
	Level       int    `json:"level"`
}

type startedPayload struct {
	PlaythroughID string `json:"playthroughId"`
	GameID        string `json:"gameId"`
	Seed          int64  `json:"seed,string"`
}

type hintPayload struct {
	Hint string `json:"hint"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one playthrough per connection. Closing the
// socket abandons the playthrough.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	installationID := r.URL.Query().Get("installationId")
	if gameID == "" || installationID == "" {
		http.Error(w, "missing gameId or installationId", http.StatusBadRequest)
		return
	}
	var seed int64
	if raw := r.URL.Query().Get("seed"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid seed", http.StatusBadRequest)
			return
		}
		seed = parsed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	p, err := h.service.Start(ctx, installationID, gameID, seed)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Abandon(ctx, p.ID)

	events, cancel, err := h.service.Subscribe(ctx, p.ID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "playthrough", p.ID, "error", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{PlaythroughID: p.ID, GameID: gameID, Seed: p.Seed}}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg := outboundMessage[any]{Type: "state", Payload: ev.State}
				if ev.Type == app.EventComplete {
					msg = outboundMessage[any]{Type: "complete", Payload: ev.Completion}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !deliver(send, writerDone, h.handle(r, p.ID, inbound)) {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// deliver queues msg for the writer. It reports false once the writer has stopped.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) handle(r *http.Request, id string, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	var err error
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload")
		}
		_, err = h.service.Select(ctx, id, payload.OptionID)
	case "level":
		var payload levelPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid level payload")
		}
		_, err = h.service.SetLevel(ctx, id, payload.ComponentID, payload.Level)
	case "submit":
		var out domain.Outcome
		out, _, err = h.service.Submit(ctx, id)
		if err == nil {
			return outboundMessage[any]{Type: "result", Payload: out}
		}
	case "hint":
		var hint string
		hint, err = h.service.Hint(ctx, id)
		if err == nil {
			return outboundMessage[any]{Type: "hint", Payload: hintPayload{Hint: hint}}
		}
	case "reset":
		_, err = h.service.Reset(ctx, id)
	default:
		return errorMessage("unsupported message type")
	}
	if err == nil {
		return outboundMessage[any]{Type: "ack", Payload: struct{}{}}
	}
	if isWarning(err) {
		return outboundMessage[any]{Type: "warning", Payload: errorPayload{Message: err.Error()}}
	}
	return errorMessage(err.Error())
}

// isWarning marks recoverable input problems the client shows as a transient notice.
func isWarning(err error) bool {
	return errors.Is(err, domain.ErrEmptySelection) || errors.Is(err, domain.ErrSubmissionLocked)
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
