// Package hub runs the single goroutine that owns the server state. All
// connects, disconnects and commands arrive on one inbox channel, so command
// processing is run-to-completion and handlers never see interleaved
// mutations.
package hub

import (
	"context"

	"go.uber.org/zap"

	"hogserver/internal/core"
	"hogserver/internal/dispatch"
	"hogserver/internal/handlers"
	"hogserver/internal/protocol"
)

type Msg interface{ isHubMsg() }

// Join registers a connection; the assigned client id is sent on Reply.
// Kicked, if non-nil, is closed right before Outbox when the hub drops the
// client for falling behind, so the transport can tell a kick apart from a
// normal leave.
type Join struct {
	Nick           string
	ProtocolNumber int
	Outbox         chan protocol.ServerMessage
	Kicked         chan struct{}
	Reply          chan core.ClientID
}

type Leave struct{ ClientID core.ClientID }

type FromClient struct {
	ClientID core.ClientID
	Cmd      protocol.Command
}

// GetState reflects internal state without data races; used by the HTTP API
// and tests.
type GetState struct{ Reply chan View }

type Shutdown struct{}

func (Join) isHubMsg()       {}
func (Leave) isHubMsg()      {}
func (FromClient) isHubMsg() {}
func (GetState) isHubMsg()   {}
func (Shutdown) isHubMsg()   {}

type View struct {
	NumClients int
	Rooms      []protocol.RoomInfo
}

// clientOutbox pairs a connection's send channel with its kick signal.
type clientOutbox struct {
	ch     chan protocol.ServerMessage
	kicked chan struct{}
}

type Hub struct {
	inbox    chan Msg
	server   *core.Server
	disp     *dispatch.Dispatcher
	outboxes map[core.ClientID]clientOutbox
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.SugaredLogger
}

func New(parent context.Context, log *zap.SugaredLogger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan Msg, 64),
		server:   core.NewServer(log),
		outboxes: make(map[core.ClientID]clientOutbox),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}
	h.disp = &dispatch.Dispatcher{Server: h.server, Out: h, Log: log}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// SendToClient implements dispatch.Outbox. A client whose outbox is full is
// too slow to keep up with its room; its kick signal fires and its channel
// is closed so the connection's writer shuts the socket down, and the read
// side will queue a Leave.
func (h *Hub) SendToClient(id core.ClientID, msg protocol.ServerMessage) {
	o, ok := h.outboxes[id]
	if !ok {
		return
	}
	select {
	case o.ch <- msg:
	default:
		h.log.Warnw("dropping slow client", "client_id", id)
		if o.kicked != nil {
			close(o.kicked)
		}
		close(o.ch)
		delete(h.outboxes, id)
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				c := h.server.AddClient(msg.Nick, msg.ProtocolNumber)
				h.outboxes[c.ID] = clientOutbox{ch: msg.Outbox, kicked: msg.Kicked}
				msg.Reply <- c.ID
				// Seed the newcomer's room list.
				for _, r := range h.server.Rooms {
					h.SendToClient(c.ID, protocol.RoomUpdated(r.Info(len(h.server.RoomClients(r.ID)))))
				}

			case Leave:
				if c := h.server.Clients[msg.ClientID]; c != nil && c.HasRoom() {
					h.disp.Run(msg.ClientID, handlers.HandleRoom(h.server, msg.ClientID, protocol.Part{Message: "quit"}))
				}
				if o, ok := h.outboxes[msg.ClientID]; ok {
					close(o.ch)
					delete(h.outboxes, msg.ClientID)
				}
				h.server.RemoveClient(msg.ClientID)

			case FromClient:
				actions := handlers.Handle(h.server, msg.ClientID, msg.Cmd)
				h.disp.Run(msg.ClientID, actions)

			case GetState:
				view := View{NumClients: len(h.server.Clients)}
				for _, r := range h.server.Rooms {
					view.Rooms = append(view.Rooms, r.Info(len(h.server.RoomClients(r.ID))))
				}
				msg.Reply <- view

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, o := range h.outboxes {
		close(o.ch)
		delete(h.outboxes, id)
	}
	h.cancel()
}
