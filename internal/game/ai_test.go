package game

import (
	"math/rand"
	"testing"
)

func observation(selfX, oppX float64) Observation {
	return Observation{
		Self:     FighterSnapshot{Side: SideEnemy, X: selfX, HP: MaxHP, Action: ActionIdle},
		Opponent: FighterSnapshot{Side: SidePlayer, X: oppX, HP: MaxHP, Action: ActionIdle},
	}
}

func TestClassifyDistance(t *testing.T) {
	tests := []struct {
		d    float64
		want DistanceBand
	}{
		{0, BandVeryClose},
		{69.9, BandVeryClose},
		{70, BandClose},
		{139, BandClose},
		{140, BandMid},
		{399, BandMid},
		{400, BandFar},
		{700, BandVeryFar},
		{2000, BandVeryFar},
	}
	for _, tt := range tests {
		if got := ClassifyDistance(tt.d); got != tt.want {
			t.Errorf("ClassifyDistance(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestCPURecoveryAfterAttack(t *testing.T) {
	p := NewCPUPolicy(rand.New(rand.NewSource(7)), 10, 30)

	obs := observation(1400, 1000)
	obs.Self.Action = ActionAttackLP
	obs.Self.ActionFrame = 10
	p.Decide(obs)

	obs.Self.Action = ActionIdle
	if in := p.Decide(obs); in != (Intent{}) {
		t.Errorf("first recovery tick intent = %+v", in)
	}
	// 30 - floor(0.6*30) = 12, one already spent
	if p.recovery != 11 {
		t.Fatalf("recovery = %d, want 11", p.recovery)
	}
	for i := 0; i < 11; i++ {
		if in := p.Decide(obs); in.HasAttack() {
			t.Fatalf("attacked during recovery at %d", i)
		}
	}
	if p.recovery != 0 {
		t.Errorf("recovery = %d after cooldown", p.recovery)
	}
}

func TestCPURecoveryFloor(t *testing.T) {
	p := NewCPUPolicy(nil, 10, 6)
	obs := observation(1400, 1000)
	obs.Self.Action = ActionAttackLP
	p.Decide(obs)
	obs.Self.Action = ActionIdle
	p.Decide(obs)
	if p.recovery != 4 {
		t.Errorf("recovery = %d, want the 5 tick floor minus one", p.recovery)
	}
}

func TestCPUReactsDuringRecovery(t *testing.T) {
	tests := []struct {
		name string
		oppX float64
		opp  Action
		want Intent
	}{
		{"blocks a close attack", 1250, ActionAttackRK, Intent{Block: true}},
		{"backs off when crowded", 1250, ActionIdle, Intent{Walk: 1}},
		{"waits at range", 1000, ActionAttackRK, Intent{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewCPUPolicy(nil, 10, 30)
			p.recovery = 5
			obs := observation(1400, tt.oppX)
			obs.Opponent.Action = tt.opp
			if got := p.Decide(obs); got != tt.want {
				t.Errorf("intent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCPUIsDeterministic(t *testing.T) {
	a := NewCPUPolicy(rand.New(rand.NewSource(42)), 10, 30)
	b := NewCPUPolicy(rand.New(rand.NewSource(42)), 10, 30)

	for i := 0; i < 600; i++ {
		obs := observation(1400-float64(i%300), 1000)
		if i%50 == 0 {
			obs.Opponent.Action = ActionAttackLK
		}
		ia, ib := a.Decide(obs), b.Decide(obs)
		if ia != ib {
			t.Fatalf("tick %d: %+v != %+v", i, ia, ib)
		}
	}
}

func TestCPUAttacksAtCloseRange(t *testing.T) {
	p := NewCPUPolicy(rand.New(rand.NewSource(3)), 10, 30)
	obs := observation(1100, 1000)
	for i := 0; i < 500; i++ {
		if p.Decide(obs).HasAttack() {
			return
		}
	}
	t.Error("never attacked a neighbor in 500 ticks")
}

func TestCPUSpectacleWhenBehind(t *testing.T) {
	p := NewCPUPolicy(nil, 10, 30)
	obs := observation(1400, 1000)
	obs.Self.HP = 40
	obs.Self.Meter = MaxMeter
	if in := p.Decide(obs); !in.Spectacle {
		t.Errorf("intent = %+v, want spectacle", in)
	}
	if p.aggression != BehindAggression {
		t.Errorf("aggression = %v", p.aggression)
	}
}

func TestCPUFallingJumpInAttacks(t *testing.T) {
	p := NewCPUPolicy(nil, 10, 30)
	p.state = aiJumpIn
	obs := observation(1400, 1200)
	obs.Self.Action = ActionJump
	obs.Self.Y = 200
	obs.Self.VY = -8

	in := p.Decide(obs)
	if in.Attack != ActionJumpAttackP && in.Attack != ActionJumpAttackK {
		t.Errorf("attack = %s, want a jump attack", in.Attack)
	}
}

func TestCPUReset(t *testing.T) {
	p := NewCPUPolicy(nil, 10, 30)
	p.recovery, p.state, p.aggression = 9, aiRetreat, KillerAggression
	p.Reset()
	if p.recovery != 0 || p.state != aiIdle || p.aggression != BaseAggression {
		t.Errorf("after reset: %+v", p)
	}
}
