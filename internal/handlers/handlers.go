// Package handlers turns parsed client commands into action lists. A handler
// reads and mutates the in-memory registries but performs no I/O; the
// dispatcher applies whatever it returns.
package handlers

import (
	"math/rand"

	"hogserver/internal/action"
	"hogserver/internal/core"
	"hogserver/internal/protocol"
)

// Handle routes a command to the lobby- or room-state handler depending on
// where the client currently is. The hub loop guarantees exclusive access to
// the server state for the duration of the call.
func Handle(s *core.Server, clientID core.ClientID, cmd protocol.Command) []action.Action {
	c := s.Clients[clientID]
	if c == nil {
		s.Log.Warnw("command from unknown client", "client_id", clientID)
		return nil
	}
	if c.HasRoom() {
		return HandleRoom(s, clientID, cmd)
	}
	return HandleLobby(s, clientID, cmd)
}

// randIntn is swappable so tests can pin the rnd reply.
var randIntn = rand.Intn

// rndReply answers a "/rnd" request: with no options it flips a coin,
// otherwise it picks one of the given options. The reply goes to the
// requester only, attributed to a pseudo-nick.
func rndReply(options []string) []action.Action {
	if len(options) == 0 {
		options = []string{"heads", "tails"}
	}
	chosen := options[randIntn(len(options))]
	return []action.Action{
		action.Send{
			Msg:    protocol.ChatMsg("[random]", chosen),
			Target: action.ToSelf(),
		},
	}
}
