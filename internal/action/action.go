// Package action defines the effect descriptors produced by command handlers.
// Handlers never touch sockets; they return a list of actions and the
// dispatcher performs the state commits and message writes.
package action

import (
	"hogserver/internal/core"
	"hogserver/internal/protocol"
)

type Action interface{ isAction() }

// Warn delivers a recoverable policy-violation notice to the originating
// client only.
type Warn struct {
	Text string
}

// ProtocolError delivers an authorization or protocol failure to the
// originating client; the transport may log these more aggressively.
type ProtocolError struct {
	Text string
}

// Send delivers one server message to the clients selected by Target.
type Send struct {
	Msg    protocol.ServerMessage
	Target Target
}

type AddRoom struct {
	Name     string
	Password string
}

type RemoveTeam struct {
	Name string
}

type MoveToRoom struct {
	RoomID core.RoomID
}

type MoveToLobby struct {
	Reason string
}

// SendRoomUpdate refreshes the lobby's view of the acting client's room.
// OldName is set after a rename (legal room names are never empty).
type SendRoomUpdate struct {
	OldName string
}

type StartRoomGame struct {
	RoomID core.RoomID
}

// SendTeamRemovalMessage injects a team-gone record into the running round.
type SendTeamRemovalMessage struct {
	TeamName string
}

func (Warn) isAction()                   {}
func (ProtocolError) isAction()          {}
func (Send) isAction()                   {}
func (AddRoom) isAction()                {}
func (RemoveTeam) isAction()             {}
func (MoveToRoom) isAction()             {}
func (MoveToLobby) isAction()            {}
func (SendRoomUpdate) isAction()         {}
func (StartRoomGame) isAction()          {}
func (SendTeamRemovalMessage) isAction() {}

// Scope selects the audience of a Send.
type Scope int

const (
	ScopeSelf Scope = iota
	ScopeAll
	ScopeRoom
)

// Target is a plain audience record: a scope, the room for ScopeRoom, and
// whether the originating client is excluded.
type Target struct {
	Scope       Scope
	RoomID      core.RoomID
	ExcludeSelf bool
}

func ToSelf() Target { return Target{Scope: ScopeSelf} }

func ToAll() Target { return Target{Scope: ScopeAll} }

func ToAllButSelf() Target { return Target{Scope: ScopeAll, ExcludeSelf: true} }

func ToRoom(id core.RoomID) Target { return Target{Scope: ScopeRoom, RoomID: id} }

func ToRoomButSelf(id core.RoomID) Target {
	return Target{Scope: ScopeRoom, RoomID: id, ExcludeSelf: true}
}
