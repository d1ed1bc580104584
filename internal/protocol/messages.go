package protocol

// ServerMessage is one outbound message as written to a client connection.
// Like the client side it is a single tagged struct rather than a type per
// message; only the fields relevant to a given Type are populated.
type ServerMessage struct {
	Type string `json:"type"`

	Nick     string    `json:"nick,omitempty"`
	Text     string    `json:"text,omitempty"`
	Flags    string    `json:"flags,omitempty"`
	Nicks    []string  `json:"nicks,omitempty"`
	TeamName string    `json:"team_name,omitempty"`
	Color    int       `json:"color,omitempty"`
	Number   int       `json:"number,omitempty"`
	Team     *TeamInfo `json:"team,omitempty"`
	Cfg      *GameCfg  `json:"cfg,omitempty"`
	Batches  []string  `json:"batches,omitempty"`
	Room     *RoomInfo `json:"room,omitempty"`
}

// RoomInfo is the lobby-visible summary of a room, sent with room-list
// updates. OldName is set when the update was caused by a rename so clients
// tracking the room by name can follow it.
type RoomInfo struct {
	Name       string `json:"name"`
	OldName    string `json:"old_name,omitempty"`
	Players    int    `json:"players"`
	Teams      int    `json:"teams"`
	Protocol   int    `json:"protocol"`
	InProgress bool   `json:"in_progress"`
	HasPass    bool   `json:"has_pass"`
}

const (
	MsgChat           = "Chat"
	MsgClientFlags    = "ClientFlags"
	MsgWarning        = "Warning"
	MsgError          = "Error"
	MsgRoomJoined     = "RoomJoined"
	MsgRoomLeft       = "RoomLeft"
	MsgRoomUpdated    = "RoomUpdated"
	MsgTeamAccepted   = "TeamAccepted"
	MsgTeamAdd        = "TeamAdd"
	MsgTeamRemove     = "TeamRemove"
	MsgTeamColor      = "TeamColor"
	MsgHedgehogsNum   = "HedgehogsNumber"
	MsgConfigEntry    = "ConfigEntry"
	MsgRunGame        = "RunGame"
	MsgEngineMessages = "EngineMessages"
)

func ChatMsg(nick, msg string) ServerMessage {
	return ServerMessage{Type: MsgChat, Nick: nick, Text: msg}
}

// ClientFlags announces a flag change ("+r", "-g", "+hr", ...) for the named
// clients.
func ClientFlags(flags string, nicks ...string) ServerMessage {
	return ServerMessage{Type: MsgClientFlags, Flags: flags, Nicks: nicks}
}

func Warning(text string) ServerMessage {
	return ServerMessage{Type: MsgWarning, Text: text}
}

func Error(text string) ServerMessage {
	return ServerMessage{Type: MsgError, Text: text}
}

func RoomJoined(nicks []string) ServerMessage {
	return ServerMessage{Type: MsgRoomJoined, Nicks: nicks}
}

func RoomLeft(nick, reason string) ServerMessage {
	return ServerMessage{Type: MsgRoomLeft, Nick: nick, Text: reason}
}

func TeamAccepted(name string) ServerMessage {
	return ServerMessage{Type: MsgTeamAccepted, TeamName: name}
}

func TeamAdd(ownerNick string, info TeamInfo) ServerMessage {
	return ServerMessage{Type: MsgTeamAdd, Nick: ownerNick, Team: &info}
}

func TeamRemove(name string) ServerMessage {
	return ServerMessage{Type: MsgTeamRemove, TeamName: name}
}

func TeamColor(name string, color int) ServerMessage {
	return ServerMessage{Type: MsgTeamColor, TeamName: name, Color: color}
}

func HedgehogsNumber(name string, number int) ServerMessage {
	return ServerMessage{Type: MsgHedgehogsNum, TeamName: name, Number: number}
}

func ConfigEntry(cfg GameCfg) ServerMessage {
	return ServerMessage{Type: MsgConfigEntry, Cfg: &cfg}
}

func RunGame() ServerMessage {
	return ServerMessage{Type: MsgRunGame}
}

// ForwardEngineMessage wraps re-encoded engine-message batches for relay to
// the other clients of a room.
func ForwardEngineMessage(batches ...string) ServerMessage {
	return ServerMessage{Type: MsgEngineMessages, Batches: batches}
}

func RoomUpdated(info RoomInfo) ServerMessage {
	return ServerMessage{Type: MsgRoomUpdated, Room: &info}
}
