// apps/go-server/internal/httpserver/ws.go
//
// Websocket protocol for the game.
// Responsibilities:
//   - Upgrade /ws, assign a player id and greet with {"type":"welcome"}.
//   - Decode {"id","type","data"} requests and answer each with an ack.
//   - Route actions to the room registry and the player's session.
//   - Throttle submissions per connection; a disconnect is a leave.
//
// Each connection runs a read loop (requests, in order) and a write loop
// (acks, events, pings). Only the write loop touches the socket for writes.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
	"github.com/robalobadob/chosung/apps/go-server/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Transport-level reasons, alongside the game's own reason codes.
const (
	reasonBadRequest    game.Reason = "bad_request"
	reasonUnknownType   game.Reason = "unknown_type"
	reasonRateLimited   game.Reason = "rate_limited"
	reasonAlreadyJoined game.Reason = "already_joined"
	reasonInternal      game.Reason = "internal_error"
)

// request is one inbound frame.
type request struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roomReq struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type submitReq struct {
	Word string `json:"word"`
}

// ack answers a request.
type ack struct {
	OK         bool          `json:"ok"`
	Reason     game.Reason   `json:"reason,omitempty"`
	MeID       string        `json:"meId,omitempty"`
	RoomCode   string        `json:"roomCode,omitempty"`
	IsHost     bool          `json:"isHost,omitempty"`
	Players    []game.Player `json:"players,omitempty"`
	Gain       int           `json:"gain"`
	Score      int           `json:"score"`
	Definition string        `json:"definition,omitempty"`
}

func fail(r game.Reason) ack { return ack{OK: false, Reason: r} }

type client struct {
	id      string
	conn    *websocket.Conn
	srv     *Server
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	// room is the code this connection is subscribed to; read loop only.
	room string
}

func (c *client) enqueue(msg []byte) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		log.Warn().Str("player", c.id).Msg("send queue full, dropping connection")
		c.kick()
	}
}

func (c *client) kick() { c.once.Do(func() { close(c.done) }) }

func (c *client) write(typ string, id int64, data any) {
	msg, err := json.Marshal(envelope{Type: typ, ID: id, Data: data})
	if err != nil {
		log.Error().Err(err).Str("player", c.id).Str("type", typ).Msg("encode frame")
		return
	}
	c.enqueue(msg)
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == s.opts.ClientOrigin {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS upgrades the request and runs the connection until it drops.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade")
		return
	}
	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		srv:     s,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(s.opts.SubmitRate), s.opts.SubmitBurst),
	}
	log.Info().Str("player", c.id).Str("remote", r.RemoteAddr).Msg("connected")

	c.write("welcome", 0, map[string]string{"meId": c.id})
	go c.writeLoop()
	c.readLoop()
}

func (c *client) readLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.leave()
		c.kick()
		log.Info().Str("player", c.id).Msg("disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("player", c.id).Msg("read")
			}
			return
		}
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.write("ack", 0, fail(reasonBadRequest))
			continue
		}
		c.write("ack", req.ID, c.dispatch(ctx, req))
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.kick()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.kick()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *client) dispatch(ctx context.Context, req request) ack {
	switch req.Type {
	case "create_room":
		var in roomReq
		if err := decode(req.Data, &in); err != nil {
			return fail(reasonBadRequest)
		}
		return c.createRoom(in.Nickname)
	case "join_room":
		var in roomReq
		if err := decode(req.Data, &in); err != nil {
			return fail(reasonBadRequest)
		}
		return c.joinRoom(in.RoomCode, in.Nickname)
	case "start_game":
		sess, err := c.srv.opts.Rooms.SessionOf(c.id)
		if err != nil {
			return fail(game.ReasonNoRoom)
		}
		return fromResult(sess.StartGame(c.id))
	case "submit_answer":
		var in submitReq
		if err := decode(req.Data, &in); err != nil {
			return fail(reasonBadRequest)
		}
		if !c.limiter.Allow() {
			return fail(reasonRateLimited)
		}
		sess, err := c.srv.opts.Rooms.SessionOf(c.id)
		if err != nil {
			return fail(game.ReasonNoRoom)
		}
		return fromResult(sess.Submit(ctx, c.id, in.Word))
	case "leave_room":
		c.leave()
		return ack{OK: true}
	default:
		return fail(reasonUnknownType)
	}
}

func (c *client) createRoom(nickname string) ack {
	var pending string
	code, players, err := c.srv.opts.Rooms.CreateWith(c.id, nickname, func(code string) {
		pending = code
		c.srv.opts.Hub.subscribe(code, c)
	})
	if err != nil {
		if pending != "" {
			c.srv.opts.Hub.unsubscribe(pending, c)
		}
		return fail(reasonFor(err))
	}
	c.moveTo(code)
	log.Info().Str("room", code).Str("player", c.id).Msg("room created")
	return ack{OK: true, MeID: c.id, RoomCode: code, IsHost: true, Players: players}
}

func (c *client) joinRoom(code, nickname string) ack {
	code = store.NormalizeCode(code)
	// Subscribe first so the joiner sees its own room_update.
	fresh := code != c.room
	if fresh {
		c.srv.opts.Hub.subscribe(code, c)
	}
	players, err := c.srv.opts.Rooms.Join(code, c.id, nickname)
	if err != nil {
		if fresh {
			c.srv.opts.Hub.unsubscribe(code, c)
		}
		return fail(reasonFor(err))
	}
	c.moveTo(code)
	isHost := false
	for _, p := range players {
		if p.ID == c.id {
			isHost = p.IsHost
		}
	}
	return ack{OK: true, MeID: c.id, RoomCode: code, IsHost: isHost, Players: players}
}

// moveTo switches the hub subscription to code.
func (c *client) moveTo(code string) {
	if c.room != "" && c.room != code {
		c.srv.opts.Hub.unsubscribe(c.room, c)
	}
	c.srv.opts.Hub.subscribe(code, c)
	c.room = code
}

func (c *client) leave() {
	if code, ok := c.srv.opts.Rooms.Leave(c.id); ok {
		log.Info().Str("room", code).Str("player", c.id).Msg("left room")
	}
	if c.room != "" {
		c.srv.opts.Hub.unsubscribe(c.room, c)
		c.room = ""
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func fromResult(r game.Result) ack {
	return ack{OK: r.OK, Reason: r.Reason, Gain: r.Gain, Score: r.Score, Definition: r.Definition}
}

func reasonFor(err error) game.Reason {
	switch {
	case errors.Is(err, store.ErrRoomNotFound), errors.Is(err, game.ErrSessionClosed):
		return game.ReasonNoRoom
	case errors.Is(err, game.ErrRoomFull):
		return game.ReasonFull
	case errors.Is(err, game.ErrNoNickname):
		return game.ReasonNoNickname
	case errors.Is(err, game.ErrDuplicatePlayer):
		return reasonAlreadyJoined
	default:
		log.Error().Err(err).Msg("unexpected room error")
		return reasonInternal
	}
}
