// apps/go-server/internal/httpserver/hub.go
//
// Hub fans room events out to websocket clients.
// Responsibilities:
//   - Track which connections are subscribed to which room code.
//   - Encode each event once and enqueue it for every recipient.
//   - Never block the emitting session: a client whose queue is full is kicked.

package httpserver

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

// envelope is the outbound frame for events and acks.
type envelope struct {
	Type string `json:"type"`
	ID   int64  `json:"id,omitempty"`
	Data any    `json:"data"`
}

// Hub implements game.Emitter on top of live connections.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *Hub) subscribe(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unsubscribe(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, room)
	}
}

// Emit implements game.Emitter. Empty Recipients reaches every subscriber.
func (h *Hub) Emit(room string, ev game.Event) {
	msg, err := json.Marshal(envelope{Type: string(ev.Kind), Data: ev.Payload})
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("event", string(ev.Kind)).Msg("encode event")
		return
	}

	var only map[string]bool
	if len(ev.Recipients) > 0 {
		only = make(map[string]bool, len(ev.Recipients))
		for _, id := range ev.Recipients {
			only[id] = true
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		if only != nil && !only[c.id] {
			continue
		}
		c.enqueue(msg)
	}
}

// subscribers counts connections subscribed to room.
func (h *Hub) subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
