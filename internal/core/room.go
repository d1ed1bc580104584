package core

import "hogserver/internal/protocol"

// RoomID identifies a room; NoRoom (0) means "in the lobby".
type RoomID uint32

const NoRoom RoomID = 0

const (
	MaxTeamsInRoom      = 8
	MaxHedgehogsPerTeam = 8
	MaxHedgehogsInRoom  = MaxTeamsInRoom * MaxHedgehogsPerTeam
)

// Team is one hedgehog team registered in a room. Exactly one client owns it.
type Team struct {
	OwnerID         ClientID
	Name            string
	Color           int
	HedgehogsNumber int
	Info            protocol.TeamInfo
}

// GameInfo exists while a round is in progress. MsgLog accumulates the
// re-encoded engine-message batches of the round so that late joiners can be
// replayed into it; LastMsg holds the newest timed gameplay record, the
// round's current position.
type GameInfo struct {
	MsgLog  []string
	LastMsg string
}

type Room struct {
	ID             RoomID
	Name           string
	Password       string
	ProtocolNumber int

	// ReadyPlayersNumber mirrors the count of clients in this room whose
	// IsReady flag is set; every toggle updates both together.
	ReadyPlayersNumber int

	TeamLimit int
	Teams     []*Team

	// GameInfo is non-nil exactly while a round is in progress.
	GameInfo *GameInfo

	Config []protocol.GameCfg
}

func NewRoom(id RoomID, name, password string, protocolNumber int) *Room {
	return &Room{
		ID:             id,
		Name:           name,
		Password:       password,
		ProtocolNumber: protocolNumber,
		TeamLimit:      MaxTeamsInRoom,
	}
}

// AddTeam registers a team described by info under the given owner and
// returns it. Capacity and duplicate checks are the caller's job.
func (r *Room) AddTeam(owner ClientID, info protocol.TeamInfo) *Team {
	t := &Team{
		OwnerID:         owner,
		Name:            info.Name,
		Color:           info.Color,
		HedgehogsNumber: info.HedgehogsNumber,
		Info:            info,
	}
	r.Teams = append(r.Teams, t)
	return t
}

// RemoveTeam drops the named team; it reports whether the team existed.
func (r *Room) RemoveTeam(name string) bool {
	for i, t := range r.Teams {
		if t.Name == name {
			r.Teams = append(r.Teams[:i], r.Teams[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) FindTeam(name string) *Team {
	for _, t := range r.Teams {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ClientTeams returns the teams owned by the given client, in room order.
func (r *Room) ClientTeams(id ClientID) []*Team {
	var teams []*Team
	for _, t := range r.Teams {
		if t.OwnerID == id {
			teams = append(teams, t)
		}
	}
	return teams
}

// FindTeamColor returns the color of the first team owned by the client, or
// NoClan when the client owns none. Used to recompute a client's clan after
// a team removal.
func (r *Room) FindTeamColor(id ClientID) int {
	for _, t := range r.Teams {
		if t.OwnerID == id {
			return t.Color
		}
	}
	return NoClan
}

// AddableHedgehogs is the number of hedgehogs that can still be added to the
// room before hitting the per-room capacity.
func (r *Room) AddableHedgehogs() int {
	total := 0
	for _, t := range r.Teams {
		total += t.HedgehogsNumber
	}
	if total >= MaxHedgehogsInRoom {
		return 0
	}
	return MaxHedgehogsInRoom - total
}

func (r *Room) SetConfig(cfg protocol.GameCfg) {
	for i, c := range r.Config {
		if c.Kind == cfg.Kind {
			r.Config[i] = cfg
			return
		}
	}
	r.Config = append(r.Config, cfg)
}

func (r *Room) Info(players int) protocol.RoomInfo {
	return protocol.RoomInfo{
		Name:       r.Name,
		Players:    players,
		Teams:      len(r.Teams),
		Protocol:   r.ProtocolNumber,
		InProgress: r.GameInfo != nil,
		HasPass:    r.Password != "",
	}
}
