package httpserver

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/chosung/apps/go-server/assets"
	"github.com/robalobadob/chosung/apps/go-server/internal/game"
	"github.com/robalobadob/chosung/apps/go-server/internal/history"
	"github.com/robalobadob/chosung/apps/go-server/internal/store"
)

const testSecret = "operator-test-secret"

var knownWords = map[string]string{
	"가족": "부부를 중심으로 한 집단",
	"기자": "기사를 쓰는 사람",
}

type harness struct {
	srv   *Server
	rooms *store.Registry
	hub   *Hub
	hist  *history.Store
	http  *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, func(*Options) {})
}

func newHarnessWith(t *testing.T, tweak func(*Options)) *harness {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, history.Migrate(db, assets.Migrations))

	h := &harness{hub: NewHub(), hist: history.NewStore(db)}
	validator := game.ValidatorFunc(func(_ context.Context, w string) (game.Lookup, error) {
		def, ok := knownWords[w]
		return game.Lookup{Exists: ok, Definition: def}, nil
	})
	h.rooms = store.NewRegistry(func(code string) *game.Session {
		return game.NewSession(code, game.DefaultConfig(), game.Options{
			Emitter:   h.hub,
			Validator: validator,
			Prompt:    func() string { return "ㄱㅈ" },
		})
	})
	t.Cleanup(h.rooms.Close)

	opts := Options{
		Rooms:          h.rooms,
		Hub:            h.hub,
		History:        h.hist,
		OperatorSecret: testSecret,
		SubmitRate:     100,
		SubmitBurst:    100,
	}
	tweak(&opts)
	h.srv = New(opts)
	h.http = httptest.NewServer(h.srv.Router())
	t.Cleanup(h.http.Close)
	return h
}

type frame struct {
	Type string          `json:"type"`
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	meID string
	next int64
	seen []frame
}

func (h *harness) dial(t *testing.T) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	var hello struct {
		MeID string `json:"meId"`
	}
	c.decode(c.waitFor("welcome"), &hello)
	require.NotEmpty(t, hello.MeID)
	c.meID = hello.MeID
	return c
}

func (c *wsClient) read() frame {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(c.t, c.conn.ReadJSON(&f))
	return f
}

// waitFor returns the data of the next frame of type typ, buffering others.
func (c *wsClient) waitFor(typ string) json.RawMessage {
	c.t.Helper()
	for i, f := range c.seen {
		if f.Type == typ {
			c.seen = append(c.seen[:i], c.seen[i+1:]...)
			return f.Data
		}
	}
	for {
		f := c.read()
		if f.Type == typ {
			return f.Data
		}
		c.seen = append(c.seen, f)
	}
}

// call sends a request and waits for its ack.
func (c *wsClient) call(typ string, data any) ack {
	c.t.Helper()
	c.next++
	id := c.next
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"id": id, "type": typ, "data": data}))
	for {
		f := c.read()
		if f.Type == "ack" && f.ID == id {
			var a ack
			c.decode(f.Data, &a)
			return a
		}
		c.seen = append(c.seen, f)
	}
}

func (c *wsClient) decode(raw json.RawMessage, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(raw, v))
}
