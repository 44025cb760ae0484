package game

import "fmt"

// MoveType is the height class of an attack
type MoveType uint8

const (
	MoveMid MoveType = iota
	MoveHigh
	MoveLow
)

func (t MoveType) String() string {
	switch t {
	case MoveHigh:
		return "high"
	case MoveLow:
		return "low"
	default:
		return "mid"
	}
}

// ParseMoveType resolves "high", "mid" or "low"
func ParseMoveType(s string) (MoveType, error) {
	switch s {
	case "high":
		return MoveHigh, nil
	case "mid":
		return MoveMid, nil
	case "low":
		return MoveLow, nil
	}
	return MoveMid, fmt.Errorf("unknown move type %q", s)
}

func (t MoveType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// MoveDefinition is the immutable frame data for one character action
type MoveDefinition struct {
	Name         string   `json:"name"`
	Damage       float64  `json:"damage"`
	MeterGain    float64  `json:"meterGain"`
	Startup      int      `json:"startup"`
	Active       int      `json:"active"`
	Recovery     int      `json:"recovery"`
	HitStun      int      `json:"hitStun"`
	RangeX       float64  `json:"rangeX"`
	RangeY       float64  `json:"rangeY"`
	Type         MoveType `json:"type"`
	Knockback    float64  `json:"knockback"`
	IsProjectile bool     `json:"isProjectile,omitempty"`
	IsGrab       bool     `json:"isGrab,omitempty"`
	SelfDamage   float64  `json:"selfDamage,omitempty"`
}

// TotalFrames returns startup + active + recovery
func (m *MoveDefinition) TotalFrames() int {
	return m.Startup + m.Active + m.Recovery
}

// InActiveWindow reports whether frame lies in [startup, startup+active)
func (m *MoveDefinition) InActiveWindow(frame int) bool {
	return frame >= m.Startup && frame < m.Startup+m.Active
}

func (m *MoveDefinition) validate() error {
	switch {
	case m.Damage < 0, m.MeterGain < 0, m.Knockback < 0, m.SelfDamage < 0:
		return fmt.Errorf("move %q: negative damage, meter, knockback or self damage", m.Name)
	case m.Startup < 0, m.Active < 0, m.Recovery < 0, m.HitStun < 0:
		return fmt.Errorf("move %q: negative frame count", m.Name)
	case m.RangeX < 0, m.RangeY < 0:
		return fmt.Errorf("move %q: negative range", m.Name)
	}
	return nil
}

// AttackRecoveryBuffer pads attack durations so animations do not cut abruptly
const AttackRecoveryBuffer = 2

// DefaultJab backs plain attack buttons for characters without their own normals
var DefaultJab = MoveDefinition{
	Name: "Default Jab", Damage: 5, MeterGain: 5,
	Startup: 0, Active: 14, Recovery: 10, HitStun: 14,
	RangeX: 120, RangeY: 180, Type: MoveMid, Knockback: 6,
}

// whiff keeps unknown attack actions timed without ever connecting
var whiff = MoveDefinition{Name: "Whiff", Recovery: 8}

// bonusSwing lets every swing count against the bonus-stage cabinet
var bonusSwing = MoveDefinition{
	Name: "BonusSwing", Damage: 8, Active: 10, Recovery: 5,
	RangeX: 240, RangeY: 320, Type: MoveMid,
}

// projectileImpact is the reaction data a projectile applies on contact
func projectileImpact(damage float64) *MoveDefinition {
	return &MoveDefinition{
		Name: "Projectile", Damage: damage, MeterGain: 5,
		Active: 1, HitStun: 12, Type: MoveMid, Knockback: 10,
	}
}

// MoveTable resolves frame data by character and action
type MoveTable struct {
	defaults map[Action]*MoveDefinition
}

func newMoveTable() MoveTable {
	jab := DefaultJab
	return MoveTable{defaults: map[Action]*MoveDefinition{
		ActionAttackLP: &jab,
		ActionAttackRP: &jab,
		ActionAttackLK: &jab,
		ActionAttackRK: &jab,
	}}
}

// Resolve returns the move for an action: character override, then the default
// set, then a non-damaging placeholder for attacks. Non-attacks resolve to nil.
func (t MoveTable) Resolve(c *CharacterDefinition, action Action) *MoveDefinition {
	if c != nil {
		if m, ok := c.Moves[action]; ok {
			return m
		}
	}
	if m, ok := t.defaults[action]; ok {
		return m
	}
	if action.IsAttack() {
		return &whiff
	}
	return nil
}
