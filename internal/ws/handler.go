package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"hogserver/internal/core"
	"hogserver/internal/hub"
	"hogserver/internal/protocol"
)

// ClientMessage is the JSON envelope of one inbound command. Like the
// outbound side, it is a single tagged struct; only the fields relevant to a
// given Type are read.
type ClientMessage struct {
	Type     string             `json:"type"`
	Name     string             `json:"name,omitempty"`
	Password string             `json:"password,omitempty"`
	Message  string             `json:"message,omitempty"`
	TeamName string             `json:"team_name,omitempty"`
	Number   int                `json:"number,omitempty"`
	Color    int                `json:"color,omitempty"`
	Options  []string           `json:"options,omitempty"`
	Team     *protocol.TeamInfo `json:"team,omitempty"`
	Cfg      *protocol.GameCfg  `json:"cfg,omitempty"`
}

func Handler(h *hub.Hub, defaultProtocol int, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nick := r.URL.Query().Get("nick")
		if nick == "" {
			http.Error(w, "missing nick", http.StatusBadRequest)
			return
		}
		protoNum := defaultProtocol
		if p := r.URL.Query().Get("protocol"); p != "" {
			parsed, err := strconv.Atoi(p)
			if err != nil {
				http.Error(w, "bad protocol", http.StatusBadRequest)
				return
			}
			protoNum = parsed
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan protocol.ServerMessage, 32)
		kicked := make(chan struct{})
		reply := make(chan core.ClientID, 1)
		h.Inbox() <- hub.Join{Nick: nick, ProtocolNumber: protoNum, Outbox: out, Kicked: kicked, Reply: reply}
		clientID := <-reply
		defer func() { h.Inbox() <- hub.Leave{ClientID: clientID} }()

		log.Infow("client connected", "conn", connID, "nick", nick, "client_id", clientID)
		defer log.Infow("client disconnected", "conn", connID, "nick", nick)

		// Writer: drains the hub outbox until it closes. Only a slow-client
		// kick shuts the socket from here; on a normal leave the channel also
		// closes, but the deferred close above owns that status.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
			select {
			case <-kicked:
				conn.Close(websocket.StatusPolicyViolation, "too slow")
			default:
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}
			cmd, ok := toCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}
			h.Inbox() <- hub.FromClient{ClientID: clientID, Cmd: cmd}
		}
	}
}

// maxTeamNameBytes keeps a team name encodable behind a one-byte length
// prefix together with its record type byte.
const maxTeamNameBytes = 254

// validTeamInfo screens client-supplied team data before it reaches the
// handlers, which trust their commands. A hedgehog count outside 1..8 or an
// unencodable name would corrupt the room's capacity accounting.
func validTeamInfo(info protocol.TeamInfo) bool {
	return info.Name != "" &&
		len(info.Name) <= maxTeamNameBytes &&
		info.HedgehogsNumber >= 1 &&
		info.HedgehogsNumber <= core.MaxHedgehogsPerTeam
}

func writeError(ctx context.Context, conn *websocket.Conn, text string) {
	payload, _ := json.Marshal(protocol.Error(text))
	_ = conn.Write(ctx, websocket.MessageText, payload)
}

func toCommand(m ClientMessage) (protocol.Command, bool) {
	switch m.Type {
	case "CreateRoom":
		return protocol.CreateRoom{Name: m.Name, Password: m.Password}, true
	case "JoinRoom":
		return protocol.JoinRoom{Name: m.Name, Password: m.Password}, true
	case "List":
		return protocol.List{}, true
	case "Chat":
		return protocol.Chat{Message: m.Message}, true
	case "Rnd":
		return protocol.Rnd{Options: m.Options}, true
	case "Part":
		return protocol.Part{Message: m.Message}, true
	case "RoomName":
		return protocol.RoomName{Name: m.Name}, true
	case "ToggleReady":
		return protocol.ToggleReady{}, true
	case "AddTeam":
		if m.Team == nil || !validTeamInfo(*m.Team) {
			return nil, false
		}
		return protocol.AddTeam{Info: *m.Team}, true
	case "RemoveTeam":
		return protocol.RemoveTeam{Name: m.TeamName}, true
	case "SetHedgehogsNumber":
		return protocol.SetHedgehogsNumber{TeamName: m.TeamName, Number: m.Number}, true
	case "SetTeamColor":
		return protocol.SetTeamColor{TeamName: m.TeamName, Color: m.Color}, true
	case "Cfg":
		if m.Cfg == nil {
			return nil, false
		}
		return protocol.Cfg{Config: *m.Cfg}, true
	case "StartGame":
		return protocol.StartGame{}, true
	case "EngineMessage":
		return protocol.EngineMessage{Message: m.Message}, true
	case "RoundFinished":
		return protocol.RoundFinished{}, true
	default:
		return nil, false
	}
}
