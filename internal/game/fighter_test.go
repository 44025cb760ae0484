package game

import "testing"

func TestFighterClamps(t *testing.T) {
	f := NewFighter(SidePlayer, neutralCharacter("alpha"), 1000)

	if got := f.TakeDamage(30); got != 30 || f.HP != 70 {
		t.Errorf("TakeDamage(30) removed %v, HP %v", got, f.HP)
	}
	if got := f.TakeDamage(500); got != 70 || f.HP != 0 {
		t.Errorf("overkill removed %v, HP %v", got, f.HP)
	}
	if got := f.TakeDamage(-5); got != 0 {
		t.Errorf("negative damage removed %v", got)
	}

	f.AddMeter(150)
	if f.Meter != MaxMeter {
		t.Errorf("meter = %v, want %v", f.Meter, MaxMeter)
	}
	f.AddMeter(-500)
	if f.Meter != 0 {
		t.Errorf("meter = %v, want 0", f.Meter)
	}
	if f.SpendMeter(1) {
		t.Error("spent meter that was not there")
	}
}

func TestFighterParry(t *testing.T) {
	tests := []struct {
		name    string
		meter   float64
		stun    int
		parried bool
		want    bool
	}{
		{"escapes stun", 60, 10, false, true},
		{"not enough meter", 49, 10, false, false},
		{"not stunned", 100, 0, false, false},
		{"already parried this stun", 100, 10, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFighter(SidePlayer, neutralCharacter("alpha"), 1000)
			f.Stun(ActionHitStun, tt.stun)
			f.Meter = tt.meter
			f.parried = tt.parried

			if got := f.Parry(); got != tt.want {
				t.Fatalf("Parry() = %v, want %v", got, tt.want)
			}
			if !tt.want {
				return
			}
			if f.Action != ActionParry || f.StunFrames != 0 {
				t.Errorf("action %s stun %d after parry", f.Action, f.StunFrames)
			}
			if f.Meter != tt.meter-ParryCost {
				t.Errorf("meter = %v", f.Meter)
			}
			if f.VX != -ParryPushback {
				t.Errorf("pushback VX = %v, want %v", f.VX, -ParryPushback)
			}
			// once per stun instance
			f.Stun(ActionHitStun, 5)
			f.Meter = 100
			f.parried = true
			if f.Parry() {
				t.Error("second parry in the same stun should fail")
			}
		})
	}
}

func TestFighterNewStunAllowsParryAgain(t *testing.T) {
	f := NewFighter(SidePlayer, neutralCharacter("alpha"), 1000)
	f.Meter = 100
	f.Stun(ActionHitStun, 10)
	if !f.Parry() {
		t.Fatal("first parry failed")
	}
	f.Stun(ActionKnockdown, 10)
	if !f.Parry() {
		t.Error("a fresh stun should allow another parry")
	}
}

func TestSpectacle(t *testing.T) {
	f := NewFighter(SidePlayer, neutralCharacter("alpha"), 1000)
	if f.ActivateSpectacle() {
		t.Fatal("activated without meter")
	}
	f.Meter = MaxMeter
	if !f.ActivateSpectacle() {
		t.Fatal("activation failed with full meter")
	}
	if f.Meter != 0 || f.SpectacleFrames != SpectacleFrames {
		t.Errorf("meter %v frames %d", f.Meter, f.SpectacleFrames)
	}
	mods := f.Modifiers()
	if mods.Power != SpectaclePower || mods.Speed != SpectacleSpeed || mods.MeterGain != 0 {
		t.Errorf("spectacle modifiers = %+v", mods)
	}
	if f.ActivateSpectacle() {
		t.Error("activated twice")
	}
}

func TestHurtbox(t *testing.T) {
	f := NewFighter(SidePlayer, neutralCharacter("alpha"), 1000)

	stand := f.Hurtbox()
	if stand != (Box{Left: 950, Right: 1050, Bottom: 0, Top: 200}) {
		t.Errorf("standing hurtbox = %+v", stand)
	}

	f.force(ActionCrouch)
	crouch := f.Hurtbox()
	if crouch.Right-crouch.Left != 80 || crouch.Top != 120 {
		t.Errorf("crouching hurtbox = %+v", crouch)
	}

	f.force(ActionJump)
	f.Y = 100
	air := f.Hurtbox()
	if air.Bottom != 100 || air.Top != 260 {
		t.Errorf("airborne hurtbox = %+v", air)
	}
}

func TestResetForRoundKeepsMeter(t *testing.T) {
	f := NewFighter(SideEnemy, neutralCharacter("bravo"), 1000)
	f.Meter = 40
	f.RoundsWon = 1
	f.HP = 3
	f.StyleIndex = 1
	f.SpectacleMode = true
	f.force(ActionDefeat)

	f.resetForRound(1400)
	if f.Meter != 40 || f.RoundsWon != 1 {
		t.Errorf("meter %v rounds %d should persist", f.Meter, f.RoundsWon)
	}
	if f.HP != MaxHP || f.Action != ActionIdle || f.StyleIndex != 0 || f.SpectacleMode {
		t.Errorf("round state not reset: %+v", f)
	}
	if !f.FacingLeft || f.X != 1400 {
		t.Errorf("enemy spawn x %v facingLeft %v", f.X, f.FacingLeft)
	}

	f.resetForMatch(1250)
	if f.Meter != 0 || f.RoundsWon != 0 {
		t.Errorf("match reset kept meter %v rounds %d", f.Meter, f.RoundsWon)
	}
}

func TestFaceTowardsDeadZone(t *testing.T) {
	f := NewFighter(SidePlayer, nil, 1000)
	f.faceTowards(1010)
	if f.FacingLeft {
		t.Error("turned inside the dead zone")
	}
	f.faceTowards(900)
	if !f.FacingLeft {
		t.Error("did not turn toward an opponent on the left")
	}
	f.force(ActionAttackLP)
	f.faceTowards(1200)
	if !f.FacingLeft {
		t.Error("turned during an attack")
	}
}
