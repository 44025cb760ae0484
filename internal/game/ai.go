package game

import (
	"math"
	"math/rand"
)

// Observation is what an intent source sees each tick
type Observation struct {
	Tick     uint64          `json:"tick"`
	Self     FighterSnapshot `json:"self"`
	Opponent FighterSnapshot `json:"opponent"`
}

// Distance is the horizontal gap between the two fighters
func (o Observation) Distance() float64 {
	return math.Abs(o.Self.X - o.Opponent.X)
}

// Toward is the walk direction that closes the gap
func (o Observation) Toward() float64 {
	if o.Self.X < o.Opponent.X {
		return 1
	}
	return -1
}

// Policy produces the computer-controlled fighter's intent
type Policy interface {
	Decide(obs Observation) Intent
}

// Resetter is implemented by policies that keep per-round state
type Resetter interface {
	Reset()
}

// DistanceBand classifies the gap between fighters
type DistanceBand uint8

const (
	BandVeryClose DistanceBand = iota
	BandClose
	BandMid
	BandFar
	BandVeryFar
)

// Band thresholds in world units
const (
	VeryCloseDistance = 70.0
	CloseDistance     = 140.0
	MidDistance       = 400.0
	FarDistance       = 700.0

	ThreatDistance  = 200.0
	SpacingDistance = 180.0
)

func (b DistanceBand) String() string {
	switch b {
	case BandVeryClose:
		return "very_close"
	case BandClose:
		return "close"
	case BandMid:
		return "mid"
	case BandFar:
		return "far"
	default:
		return "very_far"
	}
}

// ClassifyDistance returns the band for a gap
func ClassifyDistance(d float64) DistanceBand {
	switch {
	case d < VeryCloseDistance:
		return BandVeryClose
	case d < CloseDistance:
		return BandClose
	case d < MidDistance:
		return BandMid
	case d < FarDistance:
		return BandFar
	default:
		return BandVeryFar
	}
}

type aiState uint8

const (
	aiIdle aiState = iota
	aiApproach
	aiRetreat
	aiDefend
	aiAttack
	aiJumpIn
	aiAntiAir
	aiZoning
)

// Aggression levels
const (
	BaseAggression    = 0.6
	BehindAggression  = 0.8
	KillerAggression  = 0.9
	KillerHPThreshold = MaxHP * 0.3
)

// CPUPolicy is the built-in opponent: a banded state machine with reaction
// latency and a recovery cooldown after every attack.
type CPUPolicy struct {
	rng *rand.Rand

	reactionTicks int
	cooldownTicks int

	state         aiState
	decisionTimer int
	aggression    float64
	recovery      int
	lastAction    Action

	// held is the movement intent kept between decisions
	held Intent
}

// NewCPUPolicy creates the built-in opponent.
// reactionTicks is the slowest decision interval, cooldownTicks the longest post-attack pause.
func NewCPUPolicy(rng *rand.Rand, reactionTicks, cooldownTicks int) *CPUPolicy {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	p := &CPUPolicy{
		rng:           rng,
		reactionTicks: max(1, reactionTicks),
		cooldownTicks: max(1, cooldownTicks),
	}
	p.Reset()
	return p
}

// Reset clears per-round memory
func (p *CPUPolicy) Reset() {
	p.state = aiIdle
	p.decisionTimer = 0
	p.aggression = BaseAggression
	p.recovery = 0
	p.lastAction = ActionIdle
	p.held = Intent{}
}

// Decide implements Policy
func (p *CPUPolicy) Decide(obs Observation) Intent {
	self, opp := obs.Self, obs.Opponent
	dist := obs.Distance()
	toward := obs.Toward()

	free := self.StunFrames == 0 && !self.Action.IsLocked() && self.Action != ActionJump
	if p.lastAction.IsAttack() && free && p.recovery == 0 {
		p.recovery = max(5, p.cooldownTicks-int(math.Floor(p.aggression*float64(p.cooldownTicks))))
	}
	p.lastAction = self.Action

	if p.recovery > 0 {
		p.recovery--
		if dist < ThreatDistance && opp.Action.IsAttack() {
			return Intent{Block: true}
		}
		if dist < SpacingDistance {
			return Intent{Walk: -toward}
		}
		return Intent{}
	}

	switch {
	case self.HP < opp.HP:
		p.aggression = BehindAggression
	case opp.HP < KillerHPThreshold:
		p.aggression = KillerAggression
	default:
		p.aggression = BaseAggression
	}

	var out Intent
	if self.Meter >= SpectacleCost && !self.SpectacleMode && self.HP < opp.HP {
		out.Spectacle = true
	}

	// Falling jump-ins may still swing
	if self.Action == ActionJump && p.state == aiJumpIn && self.VY < -5 {
		out.Attack = ActionJumpAttackK
		if p.rng.Float64() > 0.5 {
			out.Attack = ActionJumpAttackP
		}
		return out
	}

	if !free {
		return out
	}

	p.decisionTimer++
	threshold := max(1, p.reactionTicks-int(math.Floor(p.aggression*4)))
	if p.decisionTimer < threshold {
		out.Walk, out.Block = p.held.Walk, p.held.Block
		return out
	}
	p.decisionTimer = 0

	p.transition(self, opp, dist)
	decided := p.execute(self, opp, dist, toward)
	decided.Spectacle = out.Spectacle
	p.held = Intent{Walk: decided.Walk, Block: decided.Block}
	return decided
}

func (p *CPUPolicy) transition(self, opp FighterSnapshot, dist float64) {
	band := ClassifyDistance(dist)
	near := band <= BandClose
	mid := band == BandMid
	far := band >= BandFar
	oppAttacking := opp.Action.IsAttack()

	switch {
	case opp.Airborne() && near && p.rng.Float64() < 0.85:
		p.state = aiAntiAir
		return
	case oppAttacking && near && p.rng.Float64() < 0.75:
		p.state = aiDefend
		return
	case far && p.rng.Float64() < 0.6:
		p.state = aiZoning
		return
	}

	switch p.state {
	case aiIdle:
		switch {
		case far:
			if p.rng.Float64() > 0.3 {
				p.state = aiApproach
			} else {
				p.state = aiZoning
			}
		case mid:
			if p.rng.Float64() > 0.5 {
				p.state = aiJumpIn
			} else {
				p.state = aiApproach
			}
		default:
			if p.rng.Float64() > 0.2 {
				p.state = aiAttack
			} else {
				p.state = aiRetreat
			}
		}
	case aiApproach:
		if near {
			p.state = aiAttack
		} else if p.rng.Float64() > 0.95 {
			p.state = aiIdle
		}
	case aiRetreat:
		if !near {
			p.state = aiIdle
		}
	case aiDefend:
		if !oppAttacking {
			p.state = aiAttack
		}
	case aiAttack, aiAntiAir, aiZoning:
		p.state = aiIdle
	case aiJumpIn:
		if !self.Airborne() && self.Action != ActionJump {
			p.state = aiAttack
		}
	}
}

func (p *CPUPolicy) execute(self, opp FighterSnapshot, dist, toward float64) Intent {
	switch p.state {
	case aiApproach:
		return Intent{Walk: toward}
	case aiRetreat:
		return Intent{Walk: -toward}
	case aiDefend:
		return Intent{Block: true}
	case aiAntiAir:
		if p.rng.Float64() > 0.5 {
			return Intent{Crouch: true, Attack: ActionCrouchAttackP}
		}
		return Intent{Attack: ActionAttackRK}
	case aiZoning:
		if self.Meter >= 10 && p.rng.Float64() > 0.3 {
			return Intent{Attack: ActionSpecial1}
		}
		return Intent{}
	case aiJumpIn:
		if !self.Airborne() {
			return Intent{Jump: true, Walk: toward, WalkScale: 1.5}
		}
		return Intent{}
	case aiAttack:
		return Intent{Attack: p.pickAttack(self, opp, dist)}
	}
	return Intent{}
}

// pickAttack is a weighted choice among normals, with throws against a
// close blocker and raw specials when meter allows
func (p *CPUPolicy) pickAttack(self, opp FighterSnapshot, dist float64) Action {
	if opp.Action == ActionBlock && ClassifyDistance(dist) == BandVeryClose {
		return ActionSpecial2
	}
	r := p.rng.Float64()
	attack := ActionAttackLP
	switch {
	case r > 0.7:
		attack = ActionAttackRK
	case r > 0.5:
		attack = ActionAttackLK
	case r > 0.3:
		attack = ActionAttackRP
	}
	if r > 0.8 && self.Meter >= 20 {
		if p.rng.Float64() > 0.5 {
			return ActionSpecial3
		}
		return ActionSpecial4
	}
	return attack
}
