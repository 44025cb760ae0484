package game

import "testing"

// tapAll presses and releases each button inside the same tick
func tapAll(c *Controller, buttons ...Button) {
	for _, b := range buttons {
		c.Press(b)
		c.Release(b)
	}
}

func TestSpecialMotions(t *testing.T) {
	tests := []struct {
		name       string
		facingLeft bool
		buttons    []Button
		want       Action
	}{
		{"down forward punch", false, []Button{ButtonDown, ButtonRight, ButtonLP}, ActionSpecial1},
		{"down back kick", false, []Button{ButtonDown, ButtonLeft, ButtonRK}, ActionSpecial2},
		{"forward down forward punch", false, []Button{ButtonRight, ButtonDown, ButtonRight, ButtonRP}, ActionSpecial3},
		{"back down forward kick", false, []Button{ButtonLeft, ButtonDown, ButtonRight, ButtonLK}, ActionSpecial4},
		{"mirrored when facing left", true, []Button{ButtonDown, ButtonLeft, ButtonLP}, ActionSpecial1},
		{"mirrored three-step", true, []Button{ButtonLeft, ButtonDown, ButtonLeft, ButtonLP}, ActionSpecial3},
		{"wrong button", false, []Button{ButtonDown, ButtonRight, ButtonLK}, ActionAttackLK},
		{"old motion with noise", false, []Button{ButtonDown, ButtonRight, ButtonUp, ButtonLP}, ActionSpecial1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFighter(SidePlayer, nil, 1000)
			f.FacingLeft = tt.facingLeft
			var c Controller
			tapAll(&c, tt.buttons...)

			in := Interpret(f, &c, false)
			if in.Attack != tt.want {
				t.Fatalf("Attack = %s, want %s", in.Attack, tt.want)
			}
			if tt.want.IsSpecial() && c.Buffer().Len() != 0 {
				t.Error("motion buffer should be cleared after a special")
			}
		})
	}
}

func TestSpecialMotionKeptWhileUnable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *Fighter)
	}{
		{"stunned", func(f *Fighter) { f.Stun(ActionHitStun, 10) }},
		{"mid attack", func(f *Fighter) { f.force(ActionAttackRK) }},
		{"airborne", func(f *Fighter) { f.Y = 80 }},
		{"finish window loser", func(f *Fighter) { f.frozen = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFighter(SidePlayer, nil, 1000)
			tt.setup(f)
			var c Controller
			tapAll(&c, ButtonDown, ButtonRight, ButtonLP)

			if in := Interpret(f, &c, false); in.Attack.IsSpecial() {
				t.Fatalf("Attack = %s while unable to act", in.Attack)
			}
			if c.Buffer().Len() != 2 {
				t.Fatalf("buffer len = %d, want the motion kept", c.Buffer().Len())
			}

			// Recovered: the buffered motion fires on the next punch
			f.StunFrames, f.Y, f.frozen = 0, 0, false
			f.force(ActionIdle)
			c.EndTick()
			tapAll(&c, ButtonLP)
			if in := Interpret(f, &c, false); in.Attack != ActionSpecial1 {
				t.Errorf("Attack = %s after recovery, want SPECIAL_1", in.Attack)
			}
			if c.Buffer().Len() != 0 {
				t.Errorf("buffer len = %d after the special, want 0", c.Buffer().Len())
			}
		})
	}
}

func TestSpecialNeedsFreshButton(t *testing.T) {
	f := NewFighter(SidePlayer, nil, 1000)
	var c Controller
	c.Press(ButtonLP)
	c.EndTick()
	tapAll(&c, ButtonDown, ButtonRight)
	c.Press(ButtonLP) // still held, not a new tap

	if in := Interpret(f, &c, false); in.Attack != ActionIdle {
		t.Errorf("held button triggered %s", in.Attack)
	}
}

func TestTapsAreEdges(t *testing.T) {
	var c Controller
	c.Press(ButtonRK)
	if !c.Taps().Has(ButtonRK) {
		t.Fatal("press was not a tap")
	}
	c.EndTick()
	c.Press(ButtonRK)
	if c.Taps().Has(ButtonRK) {
		t.Error("repeat press of a held button counted as a tap")
	}
	if !c.Held().Has(ButtonRK) {
		t.Error("button should still be held")
	}
	c.Release(ButtonRK)
	c.Press(ButtonRK)
	if !c.Taps().Has(ButtonRK) {
		t.Error("press after release should tap")
	}
}

func TestDirectionBufferEvictsOldest(t *testing.T) {
	var d DirectionBuffer
	d.Push(DirDown)
	d.Push(DirRight)
	for i := 0; i < DirectionBufferSize-1; i++ {
		d.Push(DirUp)
	}
	if d.Len() != DirectionBufferSize {
		t.Fatalf("len = %d", d.Len())
	}
	if d.Match([]Direction{DirDown, DirForward}, false) {
		t.Error("evicted motion still matched")
	}
}

func TestInterpretStances(t *testing.T) {
	tests := []struct {
		name     string
		airborne bool
		held     []Button
		tap      Button
		want     Action
	}{
		{"standing jab", false, nil, ButtonLP, ActionAttackLP},
		{"standing roundhouse", false, nil, ButtonRK, ActionAttackRK},
		{"crouch punch", false, []Button{ButtonDown}, ButtonRP, ActionCrouchAttackP},
		{"crouch kick", false, []Button{ButtonDown}, ButtonLK, ActionCrouchAttackK},
		{"air punch", true, nil, ButtonRP, ActionJumpAttackP},
		{"air kick", true, nil, ButtonLK, ActionJumpAttackK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFighter(SidePlayer, nil, 1000)
			if tt.airborne {
				f.Y = 80
			}
			var c Controller
			for _, b := range tt.held {
				c.Press(b)
			}
			c.EndTick()
			c.Press(tt.tap)
			if in := Interpret(f, &c, false); in.Attack != tt.want {
				t.Errorf("Attack = %s, want %s", in.Attack, tt.want)
			}
		})
	}
}

func TestInterpretSpectacleAndParry(t *testing.T) {
	f := NewFighter(SidePlayer, nil, 1000)
	var c Controller
	c.Press(ButtonDown)
	c.Press(ButtonParry)

	in := Interpret(f, &c, false)
	if in.Spectacle || !in.Parry {
		t.Errorf("without meter: %+v", in)
	}

	f.Meter = MaxMeter
	in = Interpret(f, &c, false)
	if !in.Spectacle || in.Parry {
		t.Errorf("with full meter: %+v", in)
	}
}

func TestInterpretFinishing(t *testing.T) {
	f := NewFighter(SidePlayer, nil, 1000)
	var c Controller
	tapAll(&c, ButtonDown, ButtonRight)
	c.Press(ButtonLP)

	in := Interpret(f, &c, true)
	if !in.Finisher || in.HasAttack() {
		t.Errorf("finishing intent = %+v", in)
	}
}

func TestParseButton(t *testing.T) {
	for _, n := range buttonNames {
		got, err := ParseButton(" " + n.name + " ")
		if err != nil || got != n.b {
			t.Errorf("ParseButton(%q) = %v, %v", n.name, got, err)
		}
	}
	if b, err := ParseButton("lp"); err != nil || b != ButtonLP {
		t.Errorf("lower case: %v %v", b, err)
	}
	if _, err := ParseButton("START"); err == nil {
		t.Error("expected error")
	}
}
