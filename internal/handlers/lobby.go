package handlers

import (
	"hogserver/internal/action"
	"hogserver/internal/core"
	"hogserver/internal/protocol"
)

const illegalRoomNameWarning = "Illegal room name! A room name must be between 1-40 characters long, " +
	"must not have a trailing or leading space and must not have any of these characters: $()*+?[]^{|}"

const roomExistsWarning = "A room with the same name already exists."

// HandleLobby processes the commands valid while a client has not joined a
// room yet.
func HandleLobby(s *core.Server, clientID core.ClientID, cmd protocol.Command) []action.Action {
	switch cmd := cmd.(type) {
	case protocol.CreateRoom:
		if protocol.IsNameIllegal(cmd.Name) {
			return []action.Action{action.Warn{Text: illegalRoomNameWarning}}
		}
		if s.HasRoom(cmd.Name) {
			return []action.Action{action.Warn{Text: roomExistsWarning}}
		}
		nick := s.Clients[clientID].Nick
		return []action.Action{
			action.AddRoom{Name: cmd.Name, Password: cmd.Password},
			action.Send{
				Msg:    protocol.ClientFlags("+hr", nick),
				Target: action.ToSelf(),
			},
		}

	case protocol.Chat:
		nick := s.Clients[clientID].Nick
		return []action.Action{
			action.Send{
				Msg:    protocol.ChatMsg(nick, cmd.Message),
				Target: action.ToAllButSelf(),
			},
		}

	case protocol.JoinRoom:
		r := s.RoomByName(cmd.Name)
		if r == nil {
			return []action.Action{action.Warn{Text: "No such room."}}
		}
		c := s.Clients[clientID]
		if c.ProtocolNumber != r.ProtocolNumber {
			return []action.Action{action.Warn{Text: "Room version incompatible to your Hedgewars version!"}}
		}
		return []action.Action{
			action.MoveToRoom{RoomID: r.ID},
			action.Send{
				Msg:    protocol.RoomJoined(s.RoomNicks(r.ID)),
				Target: action.ToSelf(),
			},
		}

	case protocol.Rnd:
		return rndReply(cmd.Options)

	case protocol.List:
		s.Log.Warn("deprecated LIST message received")
		return nil

	default:
		s.Log.Warnw("incorrect command in lobby state", "command", cmd)
		return nil
	}
}
