package game

// Vertical placement of a hitbox as a fraction of the attacker's hurtbox height
const (
	MidBand  = 0.35
	HighBand = 0.65
)

// Hitbox returns the damage region of a move for the attacker's current stance.
// It reaches from the attacker's center to rangeX past the front of its hurtbox.
func Hitbox(f *Fighter, move *MoveDefinition) Box {
	hurt := f.Hurtbox()
	halfWidth := (hurt.Right - hurt.Left) / 2
	height := hurt.Top - hurt.Bottom

	reach := f.X + f.direction()*(halfWidth+move.RangeX)
	left, right := f.X, reach
	if reach < left {
		left, right = reach, f.X
	}

	var band float64
	switch move.Type {
	case MoveMid:
		band = MidBand * height
	case MoveHigh:
		band = HighBand * height
	}
	bottom := f.Y + band
	return Box{Left: left, Right: right, Bottom: bottom, Top: bottom + move.RangeY}
}

// connects reports whether a move is able to deal a hit at all
func connects(move *MoveDefinition) bool {
	return move != nil && !move.IsProjectile && (move.Damage > 0 || move.HitStun > 0)
}

// MeleeHit reports whether an attacker's move overlaps the defender right now.
// Frame timing and the single-hit guard are checked by the caller.
func MeleeHit(attacker, defender *Fighter, move *MoveDefinition) bool {
	if !connects(move) {
		return false
	}
	if move.Type == MoveLow && defender.Airborne() {
		return false
	}
	return Hitbox(attacker, move).Overlaps(defender.Hurtbox())
}
