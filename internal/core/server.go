package core

import (
	"sort"

	"go.uber.org/zap"
)

// Server holds the client and room registries. It is owned by a single
// goroutine (the hub loop); nothing here locks, and handlers must not retain
// the returned pointers across calls.
type Server struct {
	Clients map[ClientID]*Client
	Rooms   map[RoomID]*Room

	Log *zap.SugaredLogger

	nextClientID ClientID
	nextRoomID   RoomID
}

func NewServer(log *zap.SugaredLogger) *Server {
	return &Server{
		Clients: make(map[ClientID]*Client),
		Rooms:   make(map[RoomID]*Room),
		Log:     log,
	}
}

func (s *Server) AddClient(nick string, protocolNumber int) *Client {
	s.nextClientID++
	c := &Client{
		ID:             s.nextClientID,
		Nick:           nick,
		ProtocolNumber: protocolNumber,
		Clan:           NoClan,
	}
	s.Clients[c.ID] = c
	return c
}

func (s *Server) RemoveClient(id ClientID) {
	delete(s.Clients, id)
}

func (s *Server) AddRoom(name, password string, protocolNumber int) *Room {
	s.nextRoomID++
	r := NewRoom(s.nextRoomID, name, password, protocolNumber)
	s.Rooms[r.ID] = r
	return r
}

func (s *Server) RemoveRoom(id RoomID) {
	delete(s.Rooms, id)
}

func (s *Server) HasRoom(name string) bool {
	return s.RoomByName(name) != nil
}

func (s *Server) RoomByName(name string) *Room {
	for _, r := range s.Rooms {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// ClientAndRoom resolves a client together with its current room; the room is
// nil while the client is in the lobby. A nil client means the id is stale
// (the connection is already gone).
func (s *Server) ClientAndRoom(id ClientID) (*Client, *Room) {
	c := s.Clients[id]
	if c == nil || !c.HasRoom() {
		return c, nil
	}
	return c, s.Rooms[c.RoomID]
}

// RoomClients returns the clients currently in the room, ordered by id so
// that broadcasts and nick lists are deterministic.
func (s *Server) RoomClients(roomID RoomID) []*Client {
	var clients []*Client
	for _, c := range s.Clients {
		if c.RoomID == roomID {
			clients = append(clients, c)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients
}

// RoomNicks returns the nicks of the room's occupants, in id order.
func (s *Server) RoomNicks(roomID RoomID) []string {
	clients := s.RoomClients(roomID)
	nicks := make([]string, 0, len(clients))
	for _, c := range clients {
		nicks = append(nicks, c.Nick)
	}
	return nicks
}
