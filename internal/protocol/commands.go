package protocol

// Command is one already-parsed client protocol message. The wire layer
// produces these; handlers switch over the concrete variants.
type Command interface{ isCommand() }

// Lobby-state commands.

type CreateRoom struct {
	Name     string
	Password string
}

type JoinRoom struct {
	Name     string
	Password string
}

// List is the deprecated room-list request. Kept so the handler can log it
// instead of treating it as an unknown command.
type List struct{}

// Commands valid in either state.

type Chat struct {
	Message string
}

type Rnd struct {
	Options []string
}

// Room-state commands.

// Part carries an optional farewell; an empty Message means the client gave
// no reason (room names and chat never produce empty strings here).
type Part struct {
	Message string
}

type RoomName struct {
	Name string
}

type ToggleReady struct{}

type AddTeam struct {
	Info TeamInfo
}

type RemoveTeam struct {
	Name string
}

type SetHedgehogsNumber struct {
	TeamName string
	Number   int
}

type SetTeamColor struct {
	TeamName string
	Color    int
}

type Cfg struct {
	Config GameCfg
}

type StartGame struct{}

// EngineMessage carries a base64 blob of length-prefixed engine records.
type EngineMessage struct {
	Message string
}

type RoundFinished struct{}

// TeamInfo is the client-supplied description of a hedgehog team.
type TeamInfo struct {
	Name            string `json:"name"`
	Color           int    `json:"color"`
	Grave           string `json:"grave,omitempty"`
	Fort            string `json:"fort,omitempty"`
	VoicePack       string `json:"voice_pack,omitempty"`
	Flag            string `json:"flag,omitempty"`
	Difficulty      int    `json:"difficulty,omitempty"`
	HedgehogsNumber int    `json:"hedgehogs_number"`
}

// GameCfg is one room configuration entry (scheme, map, ammo, ...) as parsed
// from the wire. The core treats it as opaque: it is stored on the room and
// rebroadcast verbatim.
type GameCfg struct {
	Kind   string   `json:"kind"`
	Values []string `json:"values,omitempty"`
}

func (CreateRoom) isCommand()         {}
func (JoinRoom) isCommand()           {}
func (List) isCommand()               {}
func (Chat) isCommand()               {}
func (Rnd) isCommand()                {}
func (Part) isCommand()               {}
func (RoomName) isCommand()           {}
func (ToggleReady) isCommand()        {}
func (AddTeam) isCommand()            {}
func (RemoveTeam) isCommand()         {}
func (SetHedgehogsNumber) isCommand() {}
func (SetTeamColor) isCommand()       {}
func (Cfg) isCommand()                {}
func (StartGame) isCommand()          {}
func (EngineMessage) isCommand()      {}
func (RoundFinished) isCommand()      {}
