// Package dispatch applies the action lists produced by command handlers:
// it commits registry mutations and resolves message targets into concrete
// per-client deliveries through an Outbox.
package dispatch

import (
	"encoding/base64"

	"go.uber.org/zap"

	"hogserver/internal/action"
	"hogserver/internal/core"
	"hogserver/internal/protocol"
)

// Outbox is where resolved messages go; the hub implements it on top of the
// per-connection send channels.
type Outbox interface {
	SendToClient(id core.ClientID, msg protocol.ServerMessage)
}

type Dispatcher struct {
	Server *core.Server
	Out    Outbox
	Log    *zap.SugaredLogger
}

// Run applies each action in order on behalf of the originating client.
// Some actions fan out into further effects (AddRoom moves the creator in,
// MoveToLobby cascades team cleanup); those are applied inline so a single
// handler call commits as one run-to-completion unit.
func (d *Dispatcher) Run(clientID core.ClientID, actions []action.Action) {
	for _, a := range actions {
		d.apply(clientID, a)
	}
}

func (d *Dispatcher) apply(clientID core.ClientID, a action.Action) {
	s := d.Server
	switch a := a.(type) {
	case action.Warn:
		d.Out.SendToClient(clientID, protocol.Warning(a.Text))

	case action.ProtocolError:
		d.Out.SendToClient(clientID, protocol.Error(a.Text))

	case action.Send:
		d.deliver(clientID, a)

	case action.AddRoom:
		c := s.Clients[clientID]
		if c == nil {
			return
		}
		r := s.AddRoom(a.Name, a.Password, c.ProtocolNumber)
		c.IsMaster = true
		d.moveToRoom(c, r)
		// Room creators start out ready; they control the start anyway.
		c.IsReady = true
		r.ReadyPlayersNumber++
		d.sendRoomUpdate(r, "")

	case action.MoveToRoom:
		c := s.Clients[clientID]
		r := s.Rooms[a.RoomID]
		if c == nil || r == nil {
			return
		}
		d.moveToRoom(c, r)
		d.sendRoomUpdate(r, "")

	case action.MoveToLobby:
		d.moveToLobby(clientID, a.Reason)

	case action.RemoveTeam:
		d.removeTeam(clientID, a.Name)

	case action.SendRoomUpdate:
		_, r := s.ClientAndRoom(clientID)
		if r == nil {
			return
		}
		d.sendRoomUpdate(r, a.OldName)

	case action.StartRoomGame:
		d.startRoomGame(a.RoomID)

	case action.SendTeamRemovalMessage:
		_, r := s.ClientAndRoom(clientID)
		if r == nil || r.GameInfo == nil {
			return
		}
		batch := teamGoneRecord(a.TeamName)
		r.GameInfo.MsgLog = append(r.GameInfo.MsgLog, batch)
		d.broadcast(r.ID, protocol.ForwardEngineMessage(batch), clientID, true)

	default:
		d.Log.Warnw("unknown action", "action", a)
	}
}

// deliver resolves a Send target into client ids and writes the message.
func (d *Dispatcher) deliver(clientID core.ClientID, a action.Send) {
	switch a.Target.Scope {
	case action.ScopeSelf:
		d.Out.SendToClient(clientID, a.Msg)
	case action.ScopeAll:
		for id := range d.Server.Clients {
			if a.Target.ExcludeSelf && id == clientID {
				continue
			}
			d.Out.SendToClient(id, a.Msg)
		}
	case action.ScopeRoom:
		d.broadcast(a.Target.RoomID, a.Msg, clientID, a.Target.ExcludeSelf)
	}
}

func (d *Dispatcher) broadcast(roomID core.RoomID, msg protocol.ServerMessage, origin core.ClientID, excludeOrigin bool) {
	for _, c := range d.Server.RoomClients(roomID) {
		if excludeOrigin && c.ID == origin {
			continue
		}
		d.Out.SendToClient(c.ID, msg)
	}
}

func (d *Dispatcher) moveToRoom(c *core.Client, r *core.Room) {
	c.RoomID = r.ID
	c.IsInGame = false
	d.broadcast(r.ID, protocol.ClientFlags("+i", c.Nick), c.ID, true)
}

// moveToLobby detaches the client from its room, cascading: the ready
// counter, the client's teams (announced to the remaining occupants), master
// handover, and room teardown when the last occupant leaves.
func (d *Dispatcher) moveToLobby(clientID core.ClientID, reason string) {
	s := d.Server
	c, r := s.ClientAndRoom(clientID)
	if c == nil || r == nil {
		return
	}

	if c.IsReady {
		r.ReadyPlayersNumber--
	}
	for _, team := range r.ClientTeams(c.ID) {
		r.RemoveTeam(team.Name)
		d.broadcast(r.ID, protocol.TeamRemove(team.Name), clientID, true)
	}
	wasMaster := c.IsMaster
	c.ResetRoomState()

	remaining := s.RoomClients(r.ID)
	if len(remaining) == 0 {
		s.RemoveRoom(r.ID)
		d.Log.Infow("room removed", "room", r.Name)
		return
	}

	d.broadcast(r.ID, protocol.RoomLeft(c.Nick, reason), clientID, true)
	if wasMaster {
		heir := remaining[0]
		heir.IsMaster = true
		d.broadcast(r.ID, protocol.ClientFlags("+h", heir.Nick), clientID, false)
	}
	d.sendRoomUpdate(r, "")
}

func (d *Dispatcher) removeTeam(clientID core.ClientID, name string) {
	s := d.Server
	c, r := s.ClientAndRoom(clientID)
	if r == nil {
		return
	}
	if !r.RemoveTeam(name) {
		return
	}
	c.Clan = r.FindTeamColor(c.ID)
	d.broadcast(r.ID, protocol.TeamRemove(name), clientID, true)
	if r.GameInfo != nil {
		r.GameInfo.MsgLog = append(r.GameInfo.MsgLog, teamGoneRecord(name))
	}
	d.sendRoomUpdate(r, "")
}

// startRoomGame allocates the round state and flags every team owner as
// in-game. Team index bytes are assigned by room order, starting at 1, which
// is what hedgehog-switch validation checks against.
func (d *Dispatcher) startRoomGame(roomID core.RoomID) {
	s := d.Server
	r := s.Rooms[roomID]
	if r == nil {
		return
	}
	if r.GameInfo != nil {
		d.Log.Warnw("game already in progress", "room", r.Name)
		return
	}
	r.GameInfo = &core.GameInfo{}

	indices := make(map[core.ClientID][]uint8)
	for i, team := range r.Teams {
		indices[team.OwnerID] = append(indices[team.OwnerID], uint8(i+1))
	}

	var inGame []string
	for _, c := range s.RoomClients(r.ID) {
		if c.TeamsInGame > 0 {
			c.IsInGame = true
			c.TeamIndices = indices[c.ID]
			inGame = append(inGame, c.Nick)
		}
	}

	d.broadcast(r.ID, protocol.RunGame(), 0, false)
	if len(inGame) > 0 {
		d.broadcast(r.ID, protocol.ClientFlags("+g", inGame...), 0, false)
	}
	d.sendRoomUpdate(r, "")
}

// sendRoomUpdate refreshes every connected client's view of the room.
func (d *Dispatcher) sendRoomUpdate(r *core.Room, oldName string) {
	info := r.Info(len(d.Server.RoomClients(r.ID)))
	info.OldName = oldName
	msg := protocol.RoomUpdated(info)
	for id := range d.Server.Clients {
		d.Out.SendToClient(id, msg)
	}
}

// teamGoneRecord builds a single engine-message batch containing the
// team-removal record ('F' + team name), base64-encoded like every other
// logged batch.
func teamGoneRecord(teamName string) string {
	payload := append([]byte{'F'}, teamName...)
	record := append([]byte{byte(len(payload))}, payload...)
	return base64.StdEncoding.EncodeToString(record)
}
