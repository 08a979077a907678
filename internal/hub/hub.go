// Package hub owns the outbound side of every websocket connection. The
// lobby addresses connections by id; the hub maps ids to outboxes.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

type HubMsg interface{ isHubMsg() }

// Attach registers a connection's outbox. The hub closes the outbox when it
// is done with the connection; the writer should then hang up.
type Attach struct {
	ConnID string
	Outbox chan types.Command
}

type Detach struct {
	ConnID string
}

type Deliver struct {
	ConnID string
	Cmd    types.Command
}

type GetCount struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Attach) isHubMsg()      {}
func (Detach) isHubMsg()      {}
func (Deliver) isHubMsg()     {}
func (GetCount) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	conns   map[string]chan types.Command
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 1024),
		conns:   make(map[string]chan types.Command),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the loop has stopped.
func (h *Hub) Done() <-chan struct{} { return h.stopped }

// Send queues cmd for connID. Unknown ids are ignored.
func (h *Hub) Send(connID string, cmd types.Command) {
	h.post(Deliver{ConnID: connID, Cmd: cmd})
}

// Close hangs up on connID. Closing twice is harmless.
func (h *Hub) Close(connID string) {
	h.post(Detach{ConnID: connID})
}

// Count returns the number of attached connections.
func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.inbox <- GetCount{Reply: reply}:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, h.ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, h.ctx.Err()
	}
}

func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	defer close(h.stopped)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Attach:
				if old, ok := h.conns[msg.ConnID]; ok {
					close(old)
				}
				h.conns[msg.ConnID] = msg.Outbox

			case Detach:
				h.detach(msg.ConnID)

			case Deliver:
				out, ok := h.conns[msg.ConnID]
				if !ok {
					break
				}
				select {
				case out <- msg.Cmd:
				default:
					// Client is slow/full - drop them.
					h.log.Warn("outbox full, closing connection", zap.String("conn", msg.ConnID))
					h.detach(msg.ConnID)
				}

			case GetCount:
				msg.Reply <- len(h.conns)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) detach(connID string) {
	if out, ok := h.conns[connID]; ok {
		close(out)
		delete(h.conns, connID)
	}
}

func (h *Hub) shutdown() {
	for id := range h.conns {
		h.detach(id)
	}
	h.cancel()
}
