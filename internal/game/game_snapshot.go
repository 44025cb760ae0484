package game

import (
	"sync/atomic"
	"time"
)

// FighterSnapshot is an immutable copy of fighter state for rendering and AI.
// Uses value types (not pointers) to ensure immutability.
type FighterSnapshot struct {
	Side      Side        `json:"side"`
	Character CharacterID `json:"character"`
	Name      string      `json:"name"`

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

	RoundsWon       int    `json:"roundsWon"`
	StyleIndex      int    `json:"styleIndex"`
	StyleName       string `json:"styleName"`
	SpectacleMode   bool   `json:"spectacleMode"`
	SpectacleFrames int    `json:"spectacleFrames"`

	Hurtbox Box  `json:"hurtbox"`
	Hitbox  *Box `json:"hitbox,omitempty"` // only while the move's active window is open
}

// Airborne reports whether the snapshot was taken off the floor
func (s FighterSnapshot) Airborne() bool { return s.Y > 0 }

// LadderSnapshot is the run progress for rendering
type LadderSnapshot struct {
	Order []CharacterID `json:"order"`
	Index int           `json:"index"`
}

// FatalitySnapshot is the finisher progress for rendering
type FatalitySnapshot struct {
	Name  string        `json:"name"`
	Phase FatalityPhase `json:"phase"`
	Ticks int           `json:"ticks"`
}

// MatchSnapshot is a complete immutable match state for rendering
type MatchSnapshot struct {
	Sequence   uint64    `json:"sequence"`  // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp"` // When snapshot was created
	TickNumber uint64    `json:"tick"`      // Simulation tick this represents
	MatchID    string    `json:"matchId"`

	Phase       Phase  `json:"phase"`
	PhaseTicks  int    `json:"phaseTicks"`
	Timer       int    `json:"timer"`
	Message     string `json:"message,omitempty"`
	Hitstop     int    `json:"hitstop"`
	FinishTicks int    `json:"finishTicks,omitempty"`

	Player *FighterSnapshot `json:"player,omitempty"`
	Enemy  *FighterSnapshot `json:"enemy,omitempty"`

	// Pre-allocated capped slice (never grows beyond MaxProjectiles)
	Projectiles []ProjectileSnapshot `json:"projectiles"`

	Ladder   LadderSnapshot    `json:"ladder"`
	Bonus    *BonusSnapshot    `json:"bonus,omitempty"`
	Fatality *FatalitySnapshot `json:"fatality,omitempty"`

	Roster   []CharacterID `json:"roster,omitempty"`
	Cursor   int           `json:"cursor"`
	Unlocked bool          `json:"bossUnlocked"`

	// backing storage so pooled snapshots do not allocate per tick
	player, enemy FighterSnapshot
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering for lock-free producer/consumer.
type SnapshotPool struct {
	snapshots [3]MatchSnapshot // Triple buffer
	writeIdx  uint32           // atomic - producer index
	readIdx   uint32           // atomic - consumer index
	sequence  uint64           // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool() *SnapshotPool {
	pool := &SnapshotPool{}
	for i := 0; i < 3; i++ {
		pool.snapshots[i].Projectiles = make([]ProjectileSnapshot, 0, MaxProjectiles)
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick).
// Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite() *MatchSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	projectiles := snap.Projectiles[:0]
	*snap = MatchSnapshot{Projectiles: projectiles}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks write complete and advances read pointer
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only).
// Callers must copy what they need before the producer wraps around.
func (p *SnapshotPool) AcquireRead() *MatchSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Clone returns a deep copy safe to keep past the next tick
func (s *MatchSnapshot) Clone() MatchSnapshot {
	out := *s
	out.Projectiles = append([]ProjectileSnapshot(nil), s.Projectiles...)
	out.Ladder.Order = append([]CharacterID(nil), s.Ladder.Order...)
	out.Roster = append([]CharacterID(nil), s.Roster...)
	if s.Player != nil {
		out.Player = cloneFighter(s.Player)
	}
	if s.Enemy != nil {
		out.Enemy = cloneFighter(s.Enemy)
	}
	if s.Bonus != nil {
		b := *s.Bonus
		out.Bonus = &b
	}
	if s.Fatality != nil {
		f := *s.Fatality
		out.Fatality = &f
	}
	return out
}

func cloneFighter(f *FighterSnapshot) *FighterSnapshot {
	c := *f
	if f.Hitbox != nil {
		hb := *f.Hitbox
		c.Hitbox = &hb
	}
	return &c
}
