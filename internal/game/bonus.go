package game

import "math"

// Bonus stage cabinet geometry
const (
	CabinetX         = 1150.0
	CabinetHalfWidth = 220.0
	CabinetHeight    = 540.0
	BonusReachY      = 220.0
)

// BonusStage is the timed mini-objective against a stationary target
type BonusStage struct {
	HP        float64
	MaxHP     float64
	TicksLeft int
	Broken    bool

	// resume counts down once the stage is over
	resume int
	over   bool
}

// NewBonusStage creates a cabinet with the given HP and time limit
func NewBonusStage(hp float64, ticks int) *BonusStage {
	return &BonusStage{HP: hp, MaxHP: hp, TicksLeft: ticks}
}

// Box is the cabinet's hurt region
func (b *BonusStage) Box() Box {
	return Box{
		Left:   CabinetX - CabinetHalfWidth,
		Right:  CabinetX + CabinetHalfWidth,
		Bottom: 0,
		Top:    CabinetHeight,
	}
}

// Damage applies a hit and reports whether it broke the cabinet
func (b *BonusStage) Damage(amount float64) bool {
	if b.Broken || amount <= 0 {
		return false
	}
	b.HP = math.Max(0, b.HP-amount)
	if b.HP == 0 {
		b.Broken = true
		return true
	}
	return false
}

// bonusSwingMove picks the frame data a swing uses against the cabinet.
// Attacks without real frame data fall back to a generic swing, and the
// vertical reach is widened so every stance can reach the target.
func bonusSwingMove(move *MoveDefinition) *MoveDefinition {
	if move == nil || move.IsProjectile {
		return nil
	}
	swing := *move
	if !connects(move) {
		swing = bonusSwing
	}
	swing.RangeY = math.Max(swing.RangeY, BonusReachY)
	return &swing
}

// BonusSnapshot is the cabinet state for rendering
type BonusSnapshot struct {
	HP        float64 `json:"hp"`
	MaxHP     float64 `json:"maxHp"`
	TicksLeft int     `json:"ticksLeft"`
	Broken    bool    `json:"broken"`
	Box       Box     `json:"box"`
}

// ToSnapshot copies the cabinet state
func (b *BonusStage) ToSnapshot() *BonusSnapshot {
	return &BonusSnapshot{HP: b.HP, MaxHP: b.MaxHP, TicksLeft: b.TicksLeft, Broken: b.Broken, Box: b.Box()}
}
