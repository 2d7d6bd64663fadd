package game

// EventKind identifies an outbound room event.
type EventKind string

const (
	EventRoomUpdate    EventKind = "room_update"
	EventRoundStarted  EventKind = "round_started"
	EventRoundResult   EventKind = "round_result"
	EventGameOver      EventKind = "game_over"
	EventHostChanged   EventKind = "host_changed"
	EventAnswerAttempt EventKind = "answer_attempt"
)

// Event is published to a room. Empty Recipients means every member.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

// Emitter publishes events for a room. Implementations must not block and
// must not call back into the session.
type Emitter interface {
	Emit(room string, ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(room string, ev Event)

func (f EmitterFunc) Emit(room string, ev Event) { f(room, ev) }

// Fanout publishes every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(room string, ev Event) {
	for _, e := range f {
		if e != nil {
			e.Emit(room, ev)
		}
	}
}

type RoomUpdatePayload struct {
	Players []Player `json:"players"`
}

type RoundStartedPayload struct {
	Round           int     `json:"round"`
	Chosung         string  `json:"chosung"`
	TimeLimit       float64 `json:"timeLimit"`
	CurrentPlayerID string  `json:"currentPlayerId"`
}

type RoundOutcome struct {
	PlayerID string     `json:"playerId,omitempty"`
	Nickname string     `json:"nickname"`
	Success  bool       `json:"success"`
	Gain     int        `json:"gain"`
	Penalty  int        `json:"penalty"`
	Reason   FailReason `json:"reason"`
}

type RoundResultPayload struct {
	Round   int          `json:"round"`
	Players []Player     `json:"players"`
	Result  RoundOutcome `json:"result"`
}

type GameOverPayload struct {
	Rounds  int      `json:"rounds"`
	Players []Player `json:"players"`
}

type HostChangedPayload struct {
	NewHostID string `json:"newHostId"`
}

type AnswerAttemptPayload struct {
	PlayerID   string `json:"playerId"`
	Nickname   string `json:"nickname"`
	Word       string `json:"word"`
	OK         bool   `json:"ok"`
	Reason     Reason `json:"reason"`
	Gain       int    `json:"gain"`
	Score      int    `json:"score"`
	Definition string `json:"definition,omitempty"`
}
