// Package ws adapts websocket connections to lobby events.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/hub"
	"github.com/DoyleJ11/shapes-interaction/internal/lobby"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

type Options struct {
	// ReadTimeout closes a connection that sends nothing for this long.
	// Clients ping every few seconds, so it can be short.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// OriginPatterns are passed to websocket.Accept.
	OriginPatterns []string
	OutboxSize     int
}

func Handler(l *lobby.Lobby, h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 64
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))

		out := make(chan types.Command, opts.OutboxSize)
		if !attach(r.Context(), h, hub.Attach{ConnID: connID, Outbox: out}) {
			clog.Debug("hub unavailable")
			return
		}
		if !post(r.Context(), l, lobby.Connect{ConnID: connID}) {
			h.Close(connID)
			return
		}
		defer func() {
			post(context.Background(), l, lobby.Disconnect{ConnID: connID})
			h.Close(connID)
		}()
		clog.Debug("connected", zap.String("remote", r.RemoteAddr))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for cmd := range out {
				payload, err := json.Marshal(cmd)
				if err != nil {
					clog.Error("marshal command", zap.String("command_type", string(cmd.Kind())), zap.Error(err))
					continue
				}
				if err := write(writeCtx, conn, payload, opts.WriteTimeout); err != nil {
					clog.Debug("write", zap.Error(err))
					conn.Close(websocket.StatusInternalError, "write failed")
					return
				}
			}
			// the hub is done with us
			conn.Close(websocket.StatusNormalClosure, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), opts.ReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("client closed")
				default:
					clog.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				payload, _ := json.Marshal(types.NewError("bad json"))
				_ = write(r.Context(), conn, payload, opts.WriteTimeout)
				continue
			}

			if !post(r.Context(), l, lobby.FromClient{ConnID: connID, Msg: cm}) {
				return
			}
		}
	}
}

// post hands m to the lobby unless ctx ends or the lobby has stopped first.
func post(ctx context.Context, l *lobby.Lobby, m lobby.Msg) bool {
	select {
	case l.Inbox() <- m:
		return true
	case <-ctx.Done():
		return false
	case <-l.Done():
		return false
	}
}

// attach registers the outbox unless ctx ends or the hub has stopped first.
func attach(ctx context.Context, h *hub.Hub, m hub.Attach) bool {
	select {
	case h.Inbox() <- m:
		return true
	case <-ctx.Done():
		return false
	case <-h.Done():
		return false
	}
}

func write(ctx context.Context, conn *websocket.Conn, payload []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
