package game

import (
	"fmt"
	"math"
)

const (
	MaxHP    = 100.0
	MaxMeter = 100.0

	ParryCost      = 50.0
	ParryPushback  = 10.0
	SpectacleCost  = 100.0
	BlockMeterGain = 10.0
	HitMeterGain   = 5.0
	FacingDeadZone = 20.0
)

// Side identifies which combatant a fighter is
type Side uint8

const (
	SidePlayer Side = iota
	SideEnemy
)

func (s Side) String() string {
	if s == SideEnemy {
		return "enemy"
	}
	return "player"
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player":
		*s = SidePlayer
	case "enemy":
		*s = SideEnemy
	default:
		return fmt.Errorf("unknown side %q", string(text))
	}
	return nil
}

// Other returns the opposing side
func (s Side) Other() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

// Fighter is the mutable state of one combatant. Only the match loop writes it.
type Fighter struct {
	Side      Side                 `json:"side"`
	Character *CharacterDefinition `json:"-"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	HP         float64 `json:"hp"`
	Meter      float64 `json:"meter"`
	ComboCount int     `json:"comboCount"`

	Action      Action `json:"action"`
	ActionFrame int    `json:"actionFrame"`
	FacingLeft  bool   `json:"facingLeft"`
	StunFrames  int    `json:"stunFrames"`
	IsBlocking  bool   `json:"isBlocking"`

	RoundsWon  int `json:"roundsWon"`
	StyleIndex int `json:"styleIndex"`

	SpectacleMode   bool `json:"spectacleMode"`
	SpectacleFrames int  `json:"spectacleFrames"`

	// frozen pins the fighter in its current action (finishing window loser)
	frozen bool

	// parried marks that the current stun instance was already escaped
	parried bool

	// lastHit is the attack action that already connected this swing
	lastHit    Action
	hasLastHit bool
}

// NewFighter creates a fighter at full health
func NewFighter(side Side, c *CharacterDefinition, x float64) *Fighter {
	return &Fighter{
		Side:       side,
		Character:  c,
		X:          x,
		HP:         MaxHP,
		FacingLeft: side == SideEnemy,
	}
}

// ID returns the character id, empty when none is assigned
func (f *Fighter) ID() CharacterID {
	if f.Character == nil {
		return ""
	}
	return f.Character.ID
}

// Grounded reports whether the fighter stands on the floor
func (f *Fighter) Grounded() bool {
	return f.Y <= 0 && f.VY == 0
}

// Airborne reports whether the fighter is off the floor
func (f *Fighter) Airborne() bool {
	return f.Y > 0
}

// Stats returns the base stats, neutral without a character
func (f *Fighter) Stats() Stats {
	if f.Character == nil {
		return Stats{Speed: 1, Power: 1, Defense: 1}
	}
	return f.Character.Stats
}

// Modifiers returns the active style modifiers including spectacle mode
func (f *Fighter) Modifiers() StyleModifiers {
	m := f.Character.Style(f.StyleIndex)
	if f.SpectacleMode {
		m.Power *= SpectaclePower
		m.Speed *= SpectacleSpeed
		m.Defense *= SpectacleDefense
		m.MeterGain = 0
	}
	return m
}

// CanAct reports whether input may start a new action this tick
func (f *Fighter) CanAct() bool {
	return !f.frozen && f.StunFrames <= 0 && !f.Action.IsLocked()
}

// Enter moves the fighter into an action if the transition table allows it
func (f *Fighter) Enter(a Action) bool {
	if f.frozen || !CanTransition(f.Action, a) {
		return false
	}
	f.set(a)
	return true
}

// force enters an action unconditionally (hit reactions, match flow)
func (f *Fighter) force(a Action) {
	f.set(a)
}

func (f *Fighter) set(a Action) {
	if a != f.Action && f.Action.IsAttack() {
		f.hasLastHit = false
	}
	f.Action = a
	f.ActionFrame = 0
	if a != ActionBlock {
		f.IsBlocking = false
	}
}

// TakeDamage lowers HP, clamped at zero, and returns the amount removed
func (f *Fighter) TakeDamage(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	before := f.HP
	f.HP = math.Max(0, f.HP-amount)
	return before - f.HP
}

// AddMeter changes meter within [0, MaxMeter]
func (f *Fighter) AddMeter(amount float64) {
	f.Meter = math.Max(0, math.Min(MaxMeter, f.Meter+amount))
}

// SpendMeter deducts meter if enough is available
func (f *Fighter) SpendMeter(amount float64) bool {
	if f.Meter < amount {
		return false
	}
	f.AddMeter(-amount)
	return true
}

// Stun puts the fighter into a hit reaction for the given frames
func (f *Fighter) Stun(reaction Action, frames int) {
	f.force(reaction)
	f.StunFrames = frames
	f.parried = false
	f.ComboCount = 0
}

// Parry spends meter to escape the current stun, once per stun instance
func (f *Fighter) Parry() bool {
	if f.frozen || f.StunFrames <= 0 || f.parried || f.Meter < ParryCost {
		return false
	}
	f.SpendMeter(ParryCost)
	f.parried = true
	f.StunFrames = 0
	f.force(ActionParry)
	if f.FacingLeft {
		f.VX = ParryPushback
	} else {
		f.VX = -ParryPushback
	}
	return true
}

// ActivateSpectacle spends a full meter on the super state
func (f *Fighter) ActivateSpectacle() bool {
	if f.SpectacleMode || f.Meter < SpectacleCost {
		return false
	}
	f.Meter = 0
	f.SpectacleMode = true
	f.SpectacleFrames = SpectacleFrames
	return true
}

// SwitchStyle cycles to the next style
func (f *Fighter) SwitchStyle() {
	n := 2
	if f.Character != nil && len(f.Character.Styles) > 0 {
		n = len(f.Character.Styles)
	}
	f.StyleIndex = (f.StyleIndex + 1) % n
}

// Hurtbox returns the vulnerable region for the current stance
func (f *Fighter) Hurtbox() Box {
	size := DefaultHurtbox
	if f.Character != nil && f.Character.Hurtbox.Width > 0 {
		size = f.Character.Hurtbox
	}
	w, h := size.Width, size.Height
	switch {
	case f.Action.IsCrouching():
		w *= 0.8
		h *= 0.6
	case f.Airborne():
		h *= 0.8
	}
	return Box{Left: f.X - w/2, Right: f.X + w/2, Bottom: f.Y, Top: f.Y + h}
}

// direction is +1 when facing right, -1 when facing left
func (f *Fighter) direction() float64 {
	if f.FacingLeft {
		return -1
	}
	return 1
}

// resetForRound restores round-scoped state; meter and rounds won persist
func (f *Fighter) resetForRound(x float64) {
	f.X, f.Y, f.VX, f.VY = x, 0, 0, 0
	f.HP = MaxHP
	f.Action, f.ActionFrame = ActionIdle, 0
	f.StunFrames = 0
	f.ComboCount = 0
	f.IsBlocking = false
	f.SpectacleMode, f.SpectacleFrames = false, 0
	f.StyleIndex = 0
	f.frozen, f.parried, f.hasLastHit = false, false, false
	f.FacingLeft = f.Side == SideEnemy
}

// resetForMatch starts a fresh match against a new opponent
func (f *Fighter) resetForMatch(x float64) {
	f.resetForRound(x)
	f.Meter = 0
	f.RoundsWon = 0
}

// faceTowards turns the fighter toward an x position outside the dead zone
func (f *Fighter) faceTowards(x float64) {
	if f.Action != ActionIdle && f.Action != ActionWalkForward && f.Action != ActionWalkBackward {
		return
	}
	if f.X > x+FacingDeadZone {
		f.FacingLeft = true
	} else if f.X < x-FacingDeadZone {
		f.FacingLeft = false
	}
}
