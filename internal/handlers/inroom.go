package handlers

import (
	"fmt"

	"hogserver/internal/action"
	"hogserver/internal/core"
	"hogserver/internal/enginemsg"
	"hogserver/internal/protocol"
)

const notRoomMasterError = "You're not the room master!"

// HandleRoom processes the commands valid while a client is inside a room.
// Commands that need the room no-op when the client somehow has none; clients
// race the server's own view of their state, so stale commands are tolerated
// silently rather than punished.
func HandleRoom(s *core.Server, clientID core.ClientID, cmd protocol.Command) []action.Action {
	switch cmd := cmd.(type) {
	case protocol.Part:
		reason := "part"
		if cmd.Message != "" {
			reason = fmt.Sprintf("part: %s", cmd.Message)
		}
		return []action.Action{action.MoveToLobby{Reason: reason}}

	case protocol.Chat:
		c := s.Clients[clientID]
		if !c.HasRoom() {
			return nil
		}
		return []action.Action{
			action.Send{
				Msg:    protocol.ChatMsg(c.Nick, cmd.Message),
				Target: action.ToRoomButSelf(c.RoomID),
			},
		}

	case protocol.RoomName:
		if protocol.IsNameIllegal(cmd.Name) {
			return []action.Action{action.Warn{Text: illegalRoomNameWarning}}
		}
		if s.HasRoom(cmd.Name) {
			return []action.Action{action.Warn{Text: roomExistsWarning}}
		}
		_, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		oldName := r.Name
		r.Name = cmd.Name
		return []action.Action{action.SendRoomUpdate{OldName: oldName}}

	case protocol.ToggleReady:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		var flags string
		if c.IsReady {
			r.ReadyPlayersNumber--
			flags = "-r"
		} else {
			r.ReadyPlayersNumber++
			flags = "+r"
		}
		c.IsReady = !c.IsReady
		return []action.Action{
			action.Send{
				Msg:    protocol.ClientFlags(flags, c.Nick),
				Target: action.ToRoom(r.ID),
			},
		}

	case protocol.AddTeam:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		switch {
		case len(r.Teams) >= r.TeamLimit:
			return []action.Action{action.Warn{Text: "Too many teams!"}}
		case r.AddableHedgehogs() == 0:
			return []action.Action{action.Warn{Text: "Too many hedgehogs!"}}
		case r.FindTeam(cmd.Info.Name) != nil:
			return []action.Action{action.Warn{Text: "There's already a team with same name in the list."}}
		case r.GameInfo != nil:
			return []action.Action{action.Warn{Text: "Joining not possible: Round is in progress."}}
		}
		team := r.AddTeam(c.ID, cmd.Info)
		c.TeamsInGame++
		c.Clan = team.Color
		return []action.Action{
			action.Send{
				Msg:    protocol.TeamAccepted(team.Name),
				Target: action.ToSelf(),
			},
			action.Send{
				Msg:    protocol.TeamAdd(c.Nick, team.Info),
				Target: action.ToRoomButSelf(r.ID),
			},
			action.Send{
				Msg:    protocol.TeamColor(team.Name, team.Color),
				Target: action.ToRoom(r.ID),
			},
			action.Send{
				Msg:    protocol.HedgehogsNumber(team.Name, team.HedgehogsNumber),
				Target: action.ToRoom(r.ID),
			},
			action.SendRoomUpdate{},
		}

	case protocol.RemoveTeam:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		team := r.FindTeam(cmd.Name)
		switch {
		case team == nil:
			return []action.Action{action.Warn{Text: "Error: The team you tried to remove does not exist."}}
		case team.OwnerID != clientID:
			return []action.Action{action.Warn{Text: "You can't remove a team you don't own."}}
		}
		c.TeamsInGame--
		// Clan is recomputed after the dispatcher drops the team; doing it
		// here would still see the team being removed.
		return []action.Action{action.RemoveTeam{Name: team.Name}}

	case protocol.SetHedgehogsNumber:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		team := r.FindTeam(cmd.TeamName)
		if team == nil {
			return []action.Action{action.Warn{Text: "No such team."}}
		}
		if !c.IsMaster {
			return []action.Action{action.ProtocolError{Text: notRoomMasterError}}
		}
		if cmd.Number < 1 || cmd.Number > core.MaxHedgehogsPerTeam ||
			cmd.Number > r.AddableHedgehogs()+team.HedgehogsNumber {
			// Out-of-range requests are not errors: echo the unchanged count
			// back so the requester's UI resyncs.
			return []action.Action{
				action.Send{
					Msg:    protocol.HedgehogsNumber(team.Name, team.HedgehogsNumber),
					Target: action.ToSelf(),
				},
			}
		}
		team.HedgehogsNumber = cmd.Number
		return []action.Action{
			action.Send{
				Msg:    protocol.HedgehogsNumber(team.Name, cmd.Number),
				Target: action.ToRoomButSelf(r.ID),
			},
		}

	case protocol.SetTeamColor:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		team := r.FindTeam(cmd.TeamName)
		if team == nil {
			return []action.Action{action.Warn{Text: "No such team."}}
		}
		if !c.IsMaster {
			return []action.Action{action.ProtocolError{Text: notRoomMasterError}}
		}
		team.Color = cmd.Color
		// The clan follows the team's owner, who need not be the caller.
		if owner := s.Clients[team.OwnerID]; owner != nil {
			owner.Clan = cmd.Color
		}
		return []action.Action{
			action.Send{
				Msg:    protocol.TeamColor(team.Name, cmd.Color),
				Target: action.ToRoomButSelf(r.ID),
			},
		}

	case protocol.Cfg:
		c, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		if !c.IsMaster {
			return []action.Action{action.ProtocolError{Text: notRoomMasterError}}
		}
		r.SetConfig(cmd.Config)
		return []action.Action{
			action.Send{
				Msg:    protocol.ConfigEntry(cmd.Config),
				Target: action.ToRoomButSelf(r.ID),
			},
		}

	case protocol.StartGame:
		_, r := s.ClientAndRoom(clientID)
		if r == nil {
			return nil
		}
		return []action.Action{action.StartRoomGame{RoomID: r.ID}}

	case protocol.EngineMessage:
		return handleEngineMessage(s, clientID, cmd.Message)

	case protocol.RoundFinished:
		c, r := s.ClientAndRoom(clientID)
		if r == nil || !c.IsInGame {
			return nil
		}
		c.IsInGame = false
		actions := []action.Action{
			action.Send{
				Msg:    protocol.ClientFlags("-g", c.Nick),
				Target: action.ToRoom(r.ID),
			},
		}
		if r.GameInfo != nil {
			for _, team := range r.ClientTeams(c.ID) {
				actions = append(actions, action.SendTeamRemovalMessage{TeamName: team.Name})
			}
		}
		return actions

	case protocol.Rnd:
		return rndReply(cmd.Options)

	default:
		s.Log.Warnw("unimplemented room command", "command", cmd)
		return nil
	}
}

// handleEngineMessage decodes one engine-message blob and derives two
// independent batches from it: the forward batch (whitelisted records only)
// relayed to the rest of the room, and the log batch (everything that is not
// a heartbeat) appended to the round log. The log deliberately keeps
// non-whitelisted records the forward path drops.
func handleEngineMessage(s *core.Server, clientID core.ClientID, blob string) []action.Action {
	c, r := s.ClientAndRoom(clientID)
	if r == nil || c.TeamsInGame == 0 {
		return nil
	}

	msgs, err := enginemsg.Decode(blob)
	if err != nil {
		s.Log.Warnw("engine message decode failed", "client", c.Nick, "err", err)
		return []action.Action{action.ProtocolError{Text: "Malformed engine message"}}
	}

	var actions []action.Action

	valid := enginemsg.Filter(msgs, func(m []byte) bool {
		return enginemsg.IsValid(m, c.TeamIndices)
	})
	if forward := enginemsg.Join(valid); forward != "" {
		actions = append(actions, action.Send{
			Msg:    protocol.ForwardEngineMessage(forward),
			Target: action.ToRoomButSelf(r.ID),
		})
	}

	nonEmpty := enginemsg.Filter(msgs, func(m []byte) bool {
		return !enginemsg.IsEmpty(m)
	})
	if r.GameInfo != nil {
		if logBatch := enginemsg.Join(nonEmpty); logBatch != "" {
			r.GameInfo.MsgLog = append(r.GameInfo.MsgLog, logBatch)
		}
		if last := lastSignificant(valid); last != "" {
			r.GameInfo.LastMsg = last
		}
	}

	return actions
}

// lastSignificant picks the newest record worth remembering as the round's
// current position: timed gameplay records only, never heartbeats or the
// synchronization records excluded from turn timing.
func lastSignificant(msgs [][]byte) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if enginemsg.IsTimed(m) && !enginemsg.IsEmpty(m) {
			return enginemsg.Join([][]byte{m})
		}
	}
	return ""
}
