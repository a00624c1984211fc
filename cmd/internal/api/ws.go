package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"ledgerd/cmd/internal/events"
)

// handleWS upgrades the request and streams transfer events to the client.
//
// The feed is one-way: the client sends nothing after the handshake. A
// reader goroutine still drains the connection so close frames and pings
// are processed and the session ends when the peer goes away.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "event feed disabled")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error("api.ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "closing") }()

	if h.metrics != nil {
		h.metrics.WSClients.Inc()
		defer h.metrics.WSClients.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	h.log.Info("api.ws.open", "username", principal.Username)

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case ev, open := <-ch:
			if !open {
				_ = conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			if err := h.writeEvent(ctx, conn, ev); err != nil {
				h.log.Debug("api.ws.write.fail",
					"username", principal.Username,
					"close_status", websocket.CloseStatus(err),
					"err", err,
				)
				return
			}
		}
	}
}

func (h *Handler) writeEvent(parent context.Context, conn *websocket.Conn, ev events.TransferCompleted) error {
	ctx, cancel := context.WithTimeout(parent, h.cfg.WSWriteTimeout)
	defer cancel()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
