package handlers

import (
	"encoding/base64"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hogserver/internal/action"
	"hogserver/internal/core"
	"hogserver/internal/protocol"
)

// roomFixture places a master client inside a fresh room.
func roomFixture(s *core.Server, nick string) (*core.Client, *core.Room) {
	c := s.AddClient(nick, 54)
	r := s.AddRoom(nick+"'s room", "", 54)
	c.RoomID = r.ID
	c.IsMaster = true
	return c, r
}

// joinFixtureRoom adds a plain occupant to an existing room.
func joinFixtureRoom(s *core.Server, r *core.Room, nick string) *core.Client {
	c := s.AddClient(nick, 54)
	c.RoomID = r.ID
	return c
}

func rec(payload ...byte) []byte {
	return append([]byte{byte(len(payload))}, payload...)
}

func blob(records ...[]byte) string {
	var flat []byte
	for _, r := range records {
		flat = append(flat, r...)
	}
	return base64.StdEncoding.EncodeToString(flat)
}

func TestPart(t *testing.T) {
	s := newTestServer()
	c, _ := roomFixture(s, "alice")

	actions := HandleRoom(s, c.ID, protocol.Part{})
	require.Len(t, actions, 1)
	assert.Equal(t, action.MoveToLobby{Reason: "part"}, actions[0])

	actions = HandleRoom(s, c.ID, protocol.Part{Message: "gtg"})
	require.Len(t, actions, 1)
	assert.Equal(t, action.MoveToLobby{Reason: "part: gtg"}, actions[0])
}

func TestRoomChat(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	actions := HandleRoom(s, c.ID, protocol.Chat{Message: "hi room"})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.ChatMsg("alice", "hi room"), send.Msg)
	assert.Equal(t, action.ToRoomButSelf(r.ID), send.Target)
}

func TestRoomRename(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	actions := HandleRoom(s, c.ID, protocol.RoomName{Name: "Renamed"})
	require.Len(t, actions, 1)
	assert.Equal(t, action.SendRoomUpdate{OldName: "alice's room"}, actions[0])
	assert.Equal(t, "Renamed", r.Name)
}

func TestRoomRenameRejections(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	s.AddRoom("Taken", "", 54)

	actions := HandleRoom(s, c.ID, protocol.RoomName{Name: "bad|name"})
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].(action.Warn).Text, "Illegal room name!")

	actions = HandleRoom(s, c.ID, protocol.RoomName{Name: "Taken"})
	require.Len(t, actions, 1)
	assert.Equal(t, "A room with the same name already exists.", actions[0].(action.Warn).Text)

	assert.Equal(t, "alice's room", r.Name, "name unchanged after rejections")
}

func TestToggleReady(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	actions := HandleRoom(s, c.ID, protocol.ToggleReady{})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.ClientFlags("+r", "alice"), send.Msg)
	assert.Equal(t, action.ToRoom(r.ID), send.Target, "ready flags include the toggler")
	assert.True(t, c.IsReady)
	assert.Equal(t, 1, r.ReadyPlayersNumber)

	actions = HandleRoom(s, c.ID, protocol.ToggleReady{})
	send = actions[0].(action.Send)
	assert.Equal(t, "-r", send.Msg.Flags)
	assert.False(t, c.IsReady)
	assert.Equal(t, 0, r.ReadyPlayersNumber)
}

// The counter must track the ready flags exactly over any toggle sequence.
func TestToggleReadyCounterInvariant(t *testing.T) {
	s := newTestServer()
	_, r := roomFixture(s, "alice")
	clients := []*core.Client{
		s.Clients[1],
		joinFixtureRoom(s, r, "bob"),
		joinFixtureRoom(s, r, "carol"),
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		c := clients[rng.Intn(len(clients))]
		HandleRoom(s, c.ID, protocol.ToggleReady{})

		ready := 0
		for _, cl := range s.RoomClients(r.ID) {
			if cl.IsReady {
				ready++
			}
		}
		require.Equal(t, ready, r.ReadyPlayersNumber, "after toggle %d", i)
	}
}

func TestAddTeam(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	info := protocol.TeamInfo{Name: "Alpha", Color: 3, HedgehogsNumber: 4}
	actions := HandleRoom(s, c.ID, protocol.AddTeam{Info: info})
	require.Len(t, actions, 5)

	assert.Equal(t, 1, c.TeamsInGame)
	assert.Equal(t, 3, c.Clan)
	require.NotNil(t, r.FindTeam("Alpha"))

	accepted := actions[0].(action.Send)
	assert.Equal(t, protocol.TeamAccepted("Alpha"), accepted.Msg)
	assert.Equal(t, action.ToSelf(), accepted.Target)

	added := actions[1].(action.Send)
	assert.Equal(t, protocol.MsgTeamAdd, added.Msg.Type)
	assert.Equal(t, "alice", added.Msg.Nick)
	assert.Equal(t, action.ToRoomButSelf(r.ID), added.Target)

	color := actions[2].(action.Send)
	assert.Equal(t, protocol.TeamColor("Alpha", 3), color.Msg)
	assert.Equal(t, action.ToRoom(r.ID), color.Target)

	hogs := actions[3].(action.Send)
	assert.Equal(t, protocol.HedgehogsNumber("Alpha", 4), hogs.Msg)
	assert.Equal(t, action.ToRoom(r.ID), hogs.Target)

	assert.Equal(t, action.SendRoomUpdate{}, actions[4])
}

func TestAddTeamRejections(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	t.Run("team limit", func(t *testing.T) {
		r.TeamLimit = 0
		defer func() { r.TeamLimit = core.MaxTeamsInRoom }()
		actions := HandleRoom(s, c.ID, protocol.AddTeam{Info: protocol.TeamInfo{Name: "X", HedgehogsNumber: 1}})
		require.Len(t, actions, 1)
		assert.Equal(t, "Too many teams!", actions[0].(action.Warn).Text)
		assert.Empty(t, r.Teams)
	})

	t.Run("no hedgehog slots", func(t *testing.T) {
		for i := 0; i < 8; i++ {
			r.AddTeam(c.ID, protocol.TeamInfo{Name: string(rune('a' + i)), HedgehogsNumber: 8})
		}
		r.TeamLimit = 16
		defer func() {
			r.Teams = nil
			r.TeamLimit = core.MaxTeamsInRoom
		}()
		actions := HandleRoom(s, c.ID, protocol.AddTeam{Info: protocol.TeamInfo{Name: "X", HedgehogsNumber: 1}})
		require.Len(t, actions, 1)
		assert.Equal(t, "Too many hedgehogs!", actions[0].(action.Warn).Text)
	})

	t.Run("duplicate name", func(t *testing.T) {
		r.AddTeam(c.ID, protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4})
		defer func() { r.Teams = nil }()
		actions := HandleRoom(s, c.ID, protocol.AddTeam{Info: protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4}})
		require.Len(t, actions, 1)
		assert.Equal(t, "There's already a team with same name in the list.", actions[0].(action.Warn).Text)
		assert.Len(t, r.Teams, 1)
	})

	t.Run("round in progress", func(t *testing.T) {
		r.GameInfo = &core.GameInfo{}
		defer func() { r.GameInfo = nil }()
		actions := HandleRoom(s, c.ID, protocol.AddTeam{Info: protocol.TeamInfo{Name: "X", HedgehogsNumber: 1}})
		require.Len(t, actions, 1)
		assert.Equal(t, "Joining not possible: Round is in progress.", actions[0].(action.Warn).Text)
	})
}

func TestRemoveTeam(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	HandleRoom(s, c.ID, protocol.AddTeam{Info: protocol.TeamInfo{Name: "Alpha", Color: 3, HedgehogsNumber: 4}})
	require.Equal(t, 1, c.TeamsInGame)

	actions := HandleRoom(s, c.ID, protocol.RemoveTeam{Name: "Alpha"})
	require.Len(t, actions, 1)
	assert.Equal(t, action.RemoveTeam{Name: "Alpha"}, actions[0])
	assert.Equal(t, 0, c.TeamsInGame)
	// The team itself is dropped by the dispatcher when it applies the action.
	assert.NotNil(t, r.FindTeam("Alpha"))
}

func TestRemoveTeamRejections(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	bob := joinFixtureRoom(s, r, "bob")
	r.AddTeam(bob.ID, protocol.TeamInfo{Name: "Bravo", HedgehogsNumber: 4})

	actions := HandleRoom(s, c.ID, protocol.RemoveTeam{Name: "Ghost"})
	require.Len(t, actions, 1)
	assert.Equal(t, "Error: The team you tried to remove does not exist.", actions[0].(action.Warn).Text)

	actions = HandleRoom(s, c.ID, protocol.RemoveTeam{Name: "Bravo"})
	require.Len(t, actions, 1)
	assert.Equal(t, "You can't remove a team you don't own.", actions[0].(action.Warn).Text)
	assert.NotNil(t, r.FindTeam("Bravo"))
}

func TestSetHedgehogsNumber(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	r.AddTeam(c.ID, protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4})

	actions := HandleRoom(s, c.ID, protocol.SetHedgehogsNumber{TeamName: "Alpha", Number: 6})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.HedgehogsNumber("Alpha", 6), send.Msg)
	assert.Equal(t, action.ToRoomButSelf(r.ID), send.Target)
	assert.Equal(t, 6, r.FindTeam("Alpha").HedgehogsNumber)
}

// Invalid counts never change the team and are answered with a silent echo of
// the current value to the requester only.
func TestSetHedgehogsNumberClampEcho(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	r.AddTeam(c.ID, protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4})
	// Fill most of the room so capacity also caps the request.
	for i := 0; i < 7; i++ {
		r.AddTeam(c.ID, protocol.TeamInfo{Name: string(rune('a' + i)), HedgehogsNumber: 8})
	}
	// 64 - (4+56) = 4 addable; max legal for Alpha is 8 anyway.

	for _, n := range []int{0, -1, 9, 100} {
		actions := HandleRoom(s, c.ID, protocol.SetHedgehogsNumber{TeamName: "Alpha", Number: n})
		require.Len(t, actions, 1, "number %d", n)
		send := actions[0].(action.Send)
		assert.Equal(t, protocol.HedgehogsNumber("Alpha", 4), send.Msg)
		assert.Equal(t, action.ToSelf(), send.Target)
		assert.Equal(t, 4, r.FindTeam("Alpha").HedgehogsNumber)
	}
}

func TestSetHedgehogsNumberAuthorization(t *testing.T) {
	s := newTestServer()
	_, r := roomFixture(s, "alice")
	bob := joinFixtureRoom(s, r, "bob")
	r.AddTeam(bob.ID, protocol.TeamInfo{Name: "Bravo", HedgehogsNumber: 4})

	actions := HandleRoom(s, bob.ID, protocol.SetHedgehogsNumber{TeamName: "Bravo", Number: 5})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ProtocolError{Text: "You're not the room master!"}, actions[0])
	assert.Equal(t, 4, r.FindTeam("Bravo").HedgehogsNumber)

	actions = HandleRoom(s, bob.ID, protocol.SetHedgehogsNumber{TeamName: "Ghost", Number: 5})
	require.Len(t, actions, 1)
	assert.Equal(t, "No such team.", actions[0].(action.Warn).Text)
}

func TestSetTeamColor(t *testing.T) {
	s := newTestServer()
	master, r := roomFixture(s, "alice")
	bob := joinFixtureRoom(s, r, "bob")
	r.AddTeam(bob.ID, protocol.TeamInfo{Name: "Bravo", Color: 2, HedgehogsNumber: 4})
	bob.Clan = 2

	actions := HandleRoom(s, master.ID, protocol.SetTeamColor{TeamName: "Bravo", Color: 6})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.TeamColor("Bravo", 6), send.Msg)
	assert.Equal(t, action.ToRoomButSelf(r.ID), send.Target)

	assert.Equal(t, 6, r.FindTeam("Bravo").Color)
	assert.Equal(t, 6, bob.Clan, "clan follows the owner, not the caller")
	assert.Equal(t, core.NoClan, master.Clan)
}

func TestSetTeamColorAuthorization(t *testing.T) {
	s := newTestServer()
	_, r := roomFixture(s, "alice")
	bob := joinFixtureRoom(s, r, "bob")
	r.AddTeam(bob.ID, protocol.TeamInfo{Name: "Bravo", Color: 2, HedgehogsNumber: 4})

	actions := HandleRoom(s, bob.ID, protocol.SetTeamColor{TeamName: "Bravo", Color: 6})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ProtocolError{Text: "You're not the room master!"}, actions[0])
	assert.Equal(t, 2, r.FindTeam("Bravo").Color)
}

func TestCfg(t *testing.T) {
	s := newTestServer()
	master, r := roomFixture(s, "alice")
	bob := joinFixtureRoom(s, r, "bob")
	cfg := protocol.GameCfg{Kind: "scheme", Values: []string{"Pro"}}

	actions := HandleRoom(s, bob.ID, protocol.Cfg{Config: cfg})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ProtocolError{Text: "You're not the room master!"}, actions[0])
	assert.Empty(t, r.Config, "config unchanged for non-master")

	actions = HandleRoom(s, master.ID, protocol.Cfg{Config: cfg})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.ConfigEntry(cfg), send.Msg)
	assert.Equal(t, action.ToRoomButSelf(r.ID), send.Target)
	require.Len(t, r.Config, 1)
}

func TestStartGame(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")

	actions := HandleRoom(s, c.ID, protocol.StartGame{})
	require.Len(t, actions, 1)
	assert.Equal(t, action.StartRoomGame{RoomID: r.ID}, actions[0])
}

func TestEngineMessageRequiresTeamsInPlay(t *testing.T) {
	s := newTestServer()
	c, _ := roomFixture(s, "alice")
	assert.Empty(t, HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('L'))}))
}

func TestEngineMessageForwarding(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.TeamsInGame = 1
	c.TeamIndices = []uint8{1}

	records := [][]byte{rec('L'), rec('R', 1), rec('A')}
	actions := HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(records...)})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, protocol.ForwardEngineMessage(blob(records...)), send.Msg)
	assert.Equal(t, action.ToRoomButSelf(r.ID), send.Target)
}

func TestEngineMessageAllEmptyNoForward(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.TeamsInGame = 1
	r.GameInfo = &core.GameInfo{}

	actions := HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('+'), rec('+'))})
	assert.Empty(t, actions, "heartbeats alone produce nothing")
	assert.Empty(t, r.GameInfo.MsgLog, "heartbeats are not logged either")
}

// The round log uses the weaker empty-filter: records the forward path drops
// for not being whitelisted still land in the log.
func TestEngineMessageLogKeepsInvalidRecords(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.TeamsInGame = 1
	r.GameInfo = &core.GameInfo{}

	valid := rec('L')
	invalid := rec('x', 1)
	actions := HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(valid, invalid, rec('+'))})

	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, blob(valid), send.Msg.Batches[0], "forward batch drops the invalid record")

	require.Len(t, r.GameInfo.MsgLog, 1)
	assert.Equal(t, blob(valid, invalid), r.GameInfo.MsgLog[0], "log keeps it")
}

func TestEngineMessageTracksRoundPosition(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.TeamsInGame = 1
	c.TeamIndices = []uint8{1}
	r.GameInfo = &core.GameInfo{}

	// 'M' is valid but not timed, '+' is a heartbeat; only 'L' can become
	// the round position.
	HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('M'), rec('L'), rec('+'))})
	assert.Equal(t, blob(rec('L')), r.GameInfo.LastMsg)

	// A batch with nothing timed leaves the position where it was.
	HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('+'), rec('M'))})
	assert.Equal(t, blob(rec('L')), r.GameInfo.LastMsg)

	// Records rejected by validation never become the position.
	HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('x', 1))})
	assert.Equal(t, blob(rec('L')), r.GameInfo.LastMsg)

	// A newer timed record replaces it.
	HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(rec('R', 1), rec('D'))})
	assert.Equal(t, blob(rec('D')), r.GameInfo.LastMsg)
}

func TestEngineMessageHedgehogSwitchValidation(t *testing.T) {
	s := newTestServer()
	c, _ := roomFixture(s, "alice")
	c.TeamsInGame = 2
	c.TeamIndices = []uint8{1, 2}

	owned := rec('h', 2)
	foreign := rec('h', 3)
	actions := HandleRoom(s, c.ID, protocol.EngineMessage{Message: blob(owned, foreign)})
	require.Len(t, actions, 1)
	send := actions[0].(action.Send)
	assert.Equal(t, blob(owned), send.Msg.Batches[0], "only the owned team index is forwarded")
}

func TestEngineMessageDecodeErrors(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.TeamsInGame = 1
	r.GameInfo = &core.GameInfo{}

	actions := HandleRoom(s, c.ID, protocol.EngineMessage{Message: "not base64!!"})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ProtocolError{Text: "Malformed engine message"}, actions[0])

	truncated := base64.StdEncoding.EncodeToString([]byte{9, 'M'})
	actions = HandleRoom(s, c.ID, protocol.EngineMessage{Message: truncated})
	require.Len(t, actions, 1)
	assert.Equal(t, action.ProtocolError{Text: "Malformed engine message"}, actions[0])
	assert.Empty(t, r.GameInfo.MsgLog, "nothing is logged from a bad blob")
}

func TestRoundFinished(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.IsInGame = true
	r.GameInfo = &core.GameInfo{}
	r.AddTeam(c.ID, protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4})
	r.AddTeam(c.ID, protocol.TeamInfo{Name: "Beta", HedgehogsNumber: 4})

	actions := HandleRoom(s, c.ID, protocol.RoundFinished{})
	require.Len(t, actions, 3)
	assert.False(t, c.IsInGame)

	send := actions[0].(action.Send)
	assert.Equal(t, protocol.ClientFlags("-g", "alice"), send.Msg)
	assert.Equal(t, action.ToRoom(r.ID), send.Target)

	assert.Equal(t, action.SendTeamRemovalMessage{TeamName: "Alpha"}, actions[1])
	assert.Equal(t, action.SendTeamRemovalMessage{TeamName: "Beta"}, actions[2])
}

func TestRoundFinishedNotInGame(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	r.GameInfo = &core.GameInfo{}

	assert.Empty(t, HandleRoom(s, c.ID, protocol.RoundFinished{}))
}

func TestRoundFinishedNoRound(t *testing.T) {
	s := newTestServer()
	c, r := roomFixture(s, "alice")
	c.IsInGame = true
	r.AddTeam(c.ID, protocol.TeamInfo{Name: "Alpha", HedgehogsNumber: 4})

	actions := HandleRoom(s, c.ID, protocol.RoundFinished{})
	require.Len(t, actions, 1, "only the flag broadcast without an active round")
	assert.Equal(t, "-g", actions[0].(action.Send).Msg.Flags)
}

func TestRoomUnimplementedCommandNoAction(t *testing.T) {
	s := newTestServer()
	c, _ := roomFixture(s, "alice")
	assert.Empty(t, HandleRoom(s, c.ID, protocol.List{}))
}
