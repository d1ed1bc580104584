package core

// ClientID identifies a connected client inside the registries. IDs are
// small integers handed out by the Server; 0 is never used.
type ClientID uint32

// NoClan marks a client that currently owns no teams.
const NoClan = -1

// Client is the server-side record of one connected player.
type Client struct {
	ID             ClientID
	Nick           string
	ProtocolNumber int

	// RoomID is the room the client is currently in, or NoRoom while the
	// client sits in the lobby.
	RoomID RoomID

	IsReady  bool
	IsMaster bool
	IsInGame bool

	// TeamsInGame counts the teams this client owns in its current room.
	TeamsInGame int

	// Clan is the color shared by the client's teams, or NoClan.
	Clan int

	// TeamIndices holds the per-round index byte of each of the client's
	// teams, used to validate hedgehog-switch engine messages.
	TeamIndices []uint8
}

func (c *Client) HasRoom() bool { return c.RoomID != NoRoom }

func (c *Client) OwnsTeamIndex(idx uint8) bool {
	for _, i := range c.TeamIndices {
		if i == idx {
			return true
		}
	}
	return false
}

// ResetRoomState clears everything tied to room membership; called when the
// client moves back to the lobby.
func (c *Client) ResetRoomState() {
	c.RoomID = NoRoom
	c.IsReady = false
	c.IsMaster = false
	c.IsInGame = false
	c.TeamsInGame = 0
	c.Clan = NoClan
	c.TeamIndices = nil
}
