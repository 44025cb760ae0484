package game

import (
	"math"

	"github.com/google/uuid"
)

// Projectile is a moving attack entity spawned by projectile moves.
// It resolves at most once and is then removed.
type Projectile struct {
	ID    string
	Owner Side
	Move  *MoveDefinition

	// Position and motion (world units per tick)
	X, Y    float64
	VX, VY  float64
	Gravity float64

	// Attacker-scaled damage captured at cast time
	Damage float64

	// Trail positions (ring buffer)
	TrailX   [4]float64
	TrailY   [4]float64
	TrailIdx int
}

const (
	MaxProjectiles      = 16
	ProjectileSpawnX    = 130.0
	ProjectileBaseSpeed = 14.0
	ProjectileStyleKick = 4.0
	ProjectileReachX    = 90.0
	ProjectileReachY    = 140.0
	CenterMassHeight    = 120.0
	ProjectileCeiling   = 720.0
	ArcLaunchVY         = 4.0
	ArcGravity          = 0.4
)

// NewProjectile casts a projectile from its owner's hand
func NewProjectile(owner *Fighter, move *MoveDefinition, damage float64) *Projectile {
	dir := owner.direction()
	mods := owner.Modifiers()

	height := 210.0
	if c := owner.Character; c != nil {
		height = c.HandHeight
		if owner.Airborne() {
			height = c.AirHandHeight
		}
	}

	p := &Projectile{
		ID:     uuid.NewString(),
		Owner:  owner.Side,
		Move:   move,
		X:      owner.X + dir*ProjectileSpawnX,
		Y:      owner.Y + height,
		VX:     (ProjectileBaseSpeed + mods.Speed*ProjectileStyleKick) * dir,
		Damage: damage,
	}
	if owner.Character != nil && owner.Character.ProjectileArc {
		p.VY = ArcLaunchVY
		p.Gravity = ArcGravity
	}
	for i := range p.TrailX {
		p.TrailX[i], p.TrailY[i] = p.X, p.Y
	}
	return p
}

// Update moves the projectile one tick.
// Returns false once it leaves the stage rectangle.
func (p *Projectile) Update(stage Stage) bool {
	p.TrailX[p.TrailIdx] = p.X
	p.TrailY[p.TrailIdx] = p.Y
	p.TrailIdx = (p.TrailIdx + 1) % 4

	p.X += p.VX
	p.Y += p.VY
	p.VY -= p.Gravity

	return p.X > stage.Left && p.X < stage.Right && p.Y > 0 && p.Y < ProjectileCeiling
}

// direction is the sign of horizontal travel
func (p *Projectile) direction() float64 {
	if p.VX < 0 {
		return -1
	}
	return 1
}

// CheckHit tests proximity against a target's center mass.
// A projectile that has already passed the target cannot hit it.
func (p *Projectile) CheckHit(target *Fighter) bool {
	if target.Side == p.Owner || target.Action.IsTerminal() || target.HP <= 0 {
		return false
	}
	if math.Abs(p.X-target.X) >= ProjectileReachX {
		return false
	}
	if math.Abs(target.Y+CenterMassHeight-p.Y) >= ProjectileReachY {
		return false
	}
	if p.VX < 0 {
		return p.X >= target.X
	}
	return p.X <= target.X
}

// GetTrailPoints returns the trail positions from oldest to newest
func (p *Projectile) GetTrailPoints() (xs, ys [4]float64) {
	for i := 0; i < 4; i++ {
		idx := (p.TrailIdx + i) % 4
		xs[i] = p.TrailX[idx]
		ys[i] = p.TrailY[idx]
	}
	return xs, ys
}

// ProjectileSnapshot is an immutable copy of projectile state for rendering
type ProjectileSnapshot struct {
	ID     string     `json:"id"`
	Owner  Side       `json:"owner"`
	Name   string     `json:"name"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	VX     float64    `json:"vx"`
	VY     float64    `json:"vy"`
	Damage float64    `json:"damage"`
	TrailX [4]float64 `json:"trailX"`
	TrailY [4]float64 `json:"trailY"`
}

// ToSnapshot creates an immutable snapshot for rendering
func (p *Projectile) ToSnapshot() ProjectileSnapshot {
	xs, ys := p.GetTrailPoints()
	name := ""
	if p.Move != nil {
		name = p.Move.Name
	}
	return ProjectileSnapshot{
		ID: p.ID, Owner: p.Owner, Name: name,
		X: p.X, Y: p.Y, VX: p.VX, VY: p.VY,
		Damage: p.Damage, TrailX: xs, TrailY: ys,
	}
}
