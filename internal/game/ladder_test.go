package game

import "testing"

func TestBuildLadder(t *testing.T) {
	base := []CharacterID{"bureaucrat", "professor", "maoist"}
	tests := []struct {
		name   string
		player CharacterID
		base   []CharacterID
		boss   CharacterID
		want   []CharacterID
	}{
		{"outsider", "khayati", base, "debord", []CharacterID{"bureaucrat", "professor", "maoist", "debord"}},
		{"player removed", "professor", base, "debord", []CharacterID{"bureaucrat", "maoist", "debord"}},
		{"boss plays", "debord", base, "debord", []CharacterID{"bureaucrat", "professor", "maoist"}},
		{"boss already listed", "khayati", []CharacterID{"debord", "maoist"}, "debord", []CharacterID{"debord", "maoist"}},
		{"no boss", "khayati", base, "", []CharacterID{"bureaucrat", "professor", "maoist"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := BuildLadder(tt.player, tt.base, tt.boss)
			if len(l.Order) != len(tt.want) {
				t.Fatalf("order = %v, want %v", l.Order, tt.want)
			}
			for i := range tt.want {
				if l.Order[i] != tt.want[i] {
					t.Errorf("order[%d] = %s, want %s", i, l.Order[i], tt.want[i])
				}
			}
		})
	}
}

func TestLadderAdvance(t *testing.T) {
	l := BuildLadder("a", []CharacterID{"b"}, "c")
	if id, ok := l.Current(); !ok || id != "b" {
		t.Fatalf("current = %s %v", id, ok)
	}
	if l.Advance() {
		t.Fatal("complete after one of two")
	}
	if !l.Advance() || !l.Complete() {
		t.Fatal("not complete after the boss")
	}
	if _, ok := l.Current(); ok {
		t.Error("current past the end")
	}
	l.Reset()
	if l.Index != 0 || len(l.Order) != 0 {
		t.Errorf("after reset %+v", l)
	}
}

func TestFatalitySequence(t *testing.T) {
	s := NewFatalitySequence("X", SidePlayer)
	if s.TotalTicks() != 720 {
		t.Fatalf("total = %d, want 720", s.TotalTicks())
	}
	var changes []FatalityPhase
	for i := 0; i < s.TotalTicks(); i++ {
		if s.Advance() {
			changes = append(changes, s.Phase)
		}
	}
	want := []FatalityPhase{FatalityCritique, FatalityExplosion, FatalityReify, FatalityDone}
	if len(changes) != len(want) {
		t.Fatalf("changes = %v", changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change %d = %s, want %s", i, changes[i], want[i])
		}
	}
	if !s.Done() || s.Advance() {
		t.Error("sequence should stay done")
	}
}

func TestCabinetDamage(t *testing.T) {
	b := NewBonusStage(20, 100)
	if b.Damage(0) || b.Damage(-5) {
		t.Error("non-positive damage counted")
	}
	if b.Damage(15) || b.HP != 5 {
		t.Fatalf("HP = %v", b.HP)
	}
	if !b.Damage(15) || b.HP != 0 || !b.Broken {
		t.Fatalf("should break: %+v", b)
	}
	if b.Damage(1) {
		t.Error("broken cabinet took damage")
	}
}

func TestBonusSwingReach(t *testing.T) {
	jab := testJab
	swing := bonusSwingMove(&jab)
	if swing == nil || swing.RangeY != BonusReachY || swing.Damage != jab.Damage {
		t.Fatalf("swing = %+v", swing)
	}
	if jab.RangeY != testJab.RangeY {
		t.Error("original move mutated")
	}
	if bonusSwingMove(nil) != nil {
		t.Error("nil move swung")
	}
	if got := bonusSwingMove(&whiff); got == nil || got.Name != bonusSwing.Name {
		t.Errorf("placeholder swing = %+v", got)
	}
}
