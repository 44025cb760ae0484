package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypePhase
	EventTypeMessage
	EventTypeHit
	EventTypeBlock
	EventTypeParry
	EventTypeCombo
	EventTypeProjectile
	EventTypeKO
	EventTypeRoundEnd
	EventTypeMatchEnd
	EventTypeFinishHim
	EventTypeFatality
	EventTypeFatalityPhase
	EventTypeLadder
	EventTypeBonusHit
	EventTypeStyle
	EventTypeSpectacle
	EventTypeSound
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is a discrete notification produced by the simulation
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`   // Simulation tick this occurred in
	Side      string          `json:"side"`      // Originating side, empty for match-level events
	Payload   json.RawMessage `json:"payload"`   // JSON-encoded payload
}

var eventTypeNames = [...]string{
	EventTypeUnknown:       "unknown",
	EventTypePhase:         "phase",
	EventTypeMessage:       "message",
	EventTypeHit:           "hit",
	EventTypeBlock:         "block",
	EventTypeParry:         "parry",
	EventTypeCombo:         "combo",
	EventTypeProjectile:    "projectile",
	EventTypeKO:            "ko",
	EventTypeRoundEnd:      "round_end",
	EventTypeMatchEnd:      "match_end",
	EventTypeFinishHim:     "finish_him",
	EventTypeFatality:      "fatality",
	EventTypeFatalityPhase: "fatality_phase",
	EventTypeLadder:        "ladder",
	EventTypeBonusHit:      "bonus_hit",
	EventTypeStyle:         "style",
	EventTypeSpectacle:     "spectacle",
	EventTypeSound:         "sound",
}

// String returns human-readable event type
func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// SoundCue names a sound the presentation layer should play
type SoundCue string

const (
	SoundRoundStart    SoundCue = "roundStart"
	SoundHitLight      SoundCue = "hitLight"
	SoundHitHeavy      SoundCue = "hitHeavy"
	SoundBlock         SoundCue = "block"
	SoundParry         SoundCue = "parry"
	SoundCombo         SoundCue = "combo"
	SoundSpectacle     SoundCue = "spectacle"
	SoundFinishHim     SoundCue = "finishHim"
	SoundProjectile    SoundCue = "projectile"
	SoundMenuMove      SoundCue = "menuMove"
	SoundFatalityBegin SoundCue = "fatalityBegin"
	SoundFatalityEnd   SoundCue = "fatalityEnd"
)

// SoundCues lists every cue
var SoundCues = []SoundCue{
	SoundRoundStart, SoundHitLight, SoundHitHeavy, SoundBlock, SoundParry, SoundCombo,
	SoundSpectacle, SoundFinishHim, SoundProjectile, SoundMenuMove, SoundFatalityBegin, SoundFatalityEnd,
}

// Typed payloads for different event types

// PhasePayload announces a phase change
type PhasePayload struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// MessagePayload is banner text for the HUD
type MessagePayload struct {
	Text string `json:"text"`
}

// ComboPayload announces a combo milestone
type ComboPayload struct {
	Count int    `json:"count"`
	Title string `json:"title"`
}

// ProjectilePayload announces a cast
type ProjectilePayload struct {
	ID   string  `json:"id"`
	Move string  `json:"move"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// RoundPayload reports a finished round
type RoundPayload struct {
	Winner     string `json:"winner"`
	PlayerWins int    `json:"playerWins"`
	EnemyWins  int    `json:"enemyWins"`
	TimeOver   bool   `json:"timeOver"`
	Draw       bool   `json:"draw"`
}

// FatalityPayload names the finisher being performed
type FatalityPayload struct {
	Name  string        `json:"name"`
	Phase FatalityPhase `json:"phase"`
}

// LadderPayload reports ladder progress
type LadderPayload struct {
	Index    int         `json:"index"`
	Opponent CharacterID `json:"opponent"`
	Complete bool        `json:"complete"`
}

// BonusPayload reports damage to the bonus-stage cabinet
type BonusPayload struct {
	Damage float64 `json:"damage"`
	HP     float64 `json:"hp"`
	Broken bool    `json:"broken"`
}

// StylePayload reports a style switch
type StylePayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SoundPayload names a cue
type SoundPayload struct {
	Cue SoundCue `json:"cue"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// decodePayload unmarshals an event payload into v
func decodePayload(ev Event, v interface{}) error {
	return json.Unmarshal(ev.Payload, v)
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, side string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Side:      side,
		Payload:   EncodePayload(payload),
	}
}
