package game

import "math"

// Combat constants
const (
	BlockDamageMult    = 0.25
	BlockStunMult      = 0.3
	BlockKnockbackMult = 0.2

	KnockdownKnockback = 15.0
	KnockdownHitStun   = 20
	KnockdownLift      = 10.0
	LaunchLift         = 15.0

	BlockHitstop    = 2
	MaxHitstop      = 8
	HitstopDivisor  = 5.0
	HeavyHitDamage  = 15.0
	SelfDamageFloor = 1.0
)

// ComboMilestones are the combo counts that earn a title
var ComboMilestones = []int{3, 5, 7, 10, 15}

// HitResult describes one resolved hit
type HitResult struct {
	Attacker   Side    `json:"attacker"`
	Defender   Side    `json:"defender"`
	Move       string  `json:"move"`
	Damage     float64 `json:"damage"`
	Blocked    bool    `json:"blocked"`
	Reaction   Action  `json:"reaction"`
	Combo      int     `json:"combo"`
	DefenderHP float64 `json:"defenderHp"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Hitstop    int     `json:"hitstop"`
	KO         bool    `json:"ko"`
}

// attackDamage is a move's damage scaled by the attacker's power and style
func attackDamage(attacker *Fighter, move *MoveDefinition) float64 {
	return move.Damage * attacker.Stats().Power * attacker.Modifiers().Power
}

// ResolveHit applies one connecting attack. raw is the attacker-scaled damage;
// dir is the knockback direction (+1 right, -1 left); melee enables launches.
func ResolveHit(attacker, defender *Fighter, move *MoveDefinition, raw, dir float64, melee bool) HitResult {
	defMods := defender.Modifiers()
	damage := raw / (defender.Stats().Defense * defMods.Defense)

	blocked := defender.IsBlocking && defender.Action == ActionBlock
	// No meter accrues in spectacle mode, whichever side of the hit
	accrues := !defender.SpectacleMode
	stunMult, kbMult := 1.0, 1.0
	if blocked {
		damage *= BlockDamageMult
		stunMult, kbMult = BlockStunMult, BlockKnockbackMult
		if accrues {
			defender.AddMeter(BlockMeterGain)
		}
	}

	wasGrounded := defender.Grounded()
	defender.TakeDamage(damage)
	if accrues {
		defender.AddMeter(HitMeterGain)
	}
	stun := int(math.Floor(float64(move.HitStun) * stunMult))

	res := HitResult{
		Attacker: attacker.Side,
		Defender: defender.Side,
		Move:     move.Name,
		Damage:   damage,
		Blocked:  blocked,
		X:        defender.X,
		Y:        defender.Y + CenterMassHeight,
	}

	if blocked {
		defender.StunFrames = stun
		defender.parried = false
		res.Reaction = defender.Action
	} else {
		knockdown := move.Knockback > KnockdownKnockback || move.HitStun > KnockdownHitStun
		reaction := ActionHitStun
		switch {
		case move.IsGrab:
			reaction = ActionGrabbed
		case knockdown:
			reaction = ActionKnockdown
		}
		defender.Stun(reaction, stun)
		switch {
		case melee && attacker.Action == ActionAttackRP && wasGrounded:
			defender.VY = LaunchLift
		case knockdown && !move.IsGrab:
			defender.VY = KnockdownLift
		}
		res.Reaction = reaction
	}
	defender.VX = move.Knockback * kbMult * dir

	attacker.AddMeter(move.MeterGain * attacker.Modifiers().MeterGain)
	if !blocked {
		attacker.ComboCount++
	}
	if move.SelfDamage > 0 && attacker.HP > SelfDamageFloor {
		attacker.HP = math.Max(SelfDamageFloor, attacker.HP-move.SelfDamage)
	}

	if blocked {
		res.Hitstop = BlockHitstop
	} else {
		res.Hitstop = min(MaxHitstop, int(math.Floor(damage/HitstopDivisor)))
	}
	res.Combo = attacker.ComboCount
	res.DefenderHP = defender.HP
	res.KO = defender.HP <= 0
	return res
}

// comboMilestone returns the milestone index reached by a combo count, or -1
func comboMilestone(count int) int {
	for i, m := range ComboMilestones {
		if count == m {
			return i
		}
	}
	return -1
}
