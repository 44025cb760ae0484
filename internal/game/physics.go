package game

import "math"

const (
	Gravity         = 0.8
	JumpForce       = 32.0
	MoveSpeed       = 6.0
	Friction        = 0.8
	VelocityEpsilon = 0.1
	AirControlStep  = 0.5
	AirSpeedFactor  = 1.2
)

// Stage is the horizontal extent of the arena
type Stage struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// DefaultStage matches the arena art bounds
var DefaultStage = Stage{Left: 100, Right: 2300}

// Clamp keeps x inside the stage walls
func (s Stage) Clamp(x float64) float64 {
	return math.Max(s.Left, math.Min(s.Right, x))
}

// Box is an axis-aligned rectangle in world units (y up)
type Box struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Top    float64 `json:"top"`
}

// Overlaps reports inclusive intersection
func (b Box) Overlaps(o Box) bool {
	return b.Right >= o.Left && b.Left <= o.Right && b.Top >= o.Bottom && b.Bottom <= o.Top
}

// Contains reports whether a point lies inside the box, edges included
func (b Box) Contains(x, y float64) bool {
	return x >= b.Left && x <= b.Right && y >= b.Bottom && y <= b.Top
}

// Integrate advances one fighter's kinematics by one tick.
// The only action it touches is the landing transition out of a jump.
func Integrate(f *Fighter, stage Stage) {
	if f.Y > 0 || f.VY != 0 {
		f.VY -= Gravity
		f.Y += f.VY
		if f.Y <= 0 {
			f.Y, f.VY = 0, 0
			switch f.Action {
			case ActionJump, ActionJumpAttackP, ActionJumpAttackK:
				f.force(ActionIdle)
			}
		}
	}

	if f.VX != 0 {
		f.X += f.VX
		if f.Grounded() {
			f.VX *= Friction
			if math.Abs(f.VX) < VelocityEpsilon {
				f.VX = 0
			}
		}
	}

	f.X = stage.Clamp(f.X)
}

// walkSpeed is the per-tick ground speed for a fighter's stats and style
func walkSpeed(f *Fighter) float64 {
	return MoveSpeed * f.Stats().Speed * f.Modifiers().Speed
}
