package render

import (
	"testing"

	"critique-kombat/internal/game"
)

func hitEvent(damage float64, blocked bool) game.Event {
	typ := game.EventTypeHit
	if blocked {
		typ = game.EventTypeBlock
	}
	return game.NewEvent(typ, 0, "player", game.HitResult{
		Attacker: game.SidePlayer,
		Defender: game.SideEnemy,
		Damage:   damage,
		Blocked:  blocked,
		Reaction: game.ActionHitStun,
		X:        1200,
		Y:        150,
	})
}

func TestEffectsHitFlashAndShake(t *testing.T) {
	tests := []struct {
		name      string
		damage    float64
		blocked   bool
		wantColor bool
		wantShake bool
	}{
		{"light hit", 5, false, true, false},
		{"heavy hit", game.HeavyHitDamage, false, true, true},
		{"blocked heavy", 30, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEffects()
			e.Observe(hitEvent(tt.damage, tt.blocked))

			if len(e.flashes) != 1 {
				t.Fatalf("flashes = %d, want 1", len(e.flashes))
			}
			f := e.flashes[0]
			if f.X != 1200 || f.Y != 150 {
				t.Errorf("flash at (%v,%v), want hit point", f.X, f.Y)
			}
			if (f.Color == colorHit) != tt.wantColor {
				t.Errorf("flash color = %v", f.Color)
			}
			if (e.shake.Duration > 0) != tt.wantShake {
				t.Errorf("shake = %+v, want shake %v", e.shake, tt.wantShake)
			}
		})
	}
}

func TestEffectsExpire(t *testing.T) {
	e := NewEffects()
	e.Observe(hitEvent(20, false))

	var frame Frame
	e.Advance(&game.MatchSnapshot{TickNumber: 1})
	e.Current(&frame)
	if len(frame.Flashes) != 1 {
		t.Fatalf("flashes after 1 tick = %d", len(frame.Flashes))
	}
	if frame.Flashes[0].Radius <= 6 {
		t.Errorf("flash did not expand: radius %v", frame.Flashes[0].Radius)
	}

	e.Advance(&game.MatchSnapshot{TickNumber: 40})
	e.Current(&frame)
	if len(frame.Flashes) != 0 {
		t.Errorf("flashes after gap = %d, want 0", len(frame.Flashes))
	}
	if frame.ShakeX != 0 || frame.ShakeY != 0 {
		t.Errorf("shake after gap = (%v,%v)", frame.ShakeX, frame.ShakeY)
	}
}

func TestEffectsResetOnTickRewind(t *testing.T) {
	e := NewEffects()
	e.Advance(&game.MatchSnapshot{TickNumber: 100})
	e.Observe(hitEvent(20, false))

	e.Advance(&game.MatchSnapshot{TickNumber: 2})
	if len(e.flashes) != 0 || e.shake.Duration != 0 {
		t.Errorf("effects survived rewind: %d flashes, shake %+v", len(e.flashes), e.shake)
	}
	if e.lastTick != 2 {
		t.Errorf("lastTick = %d, want 2", e.lastTick)
	}
}

func TestEffectsSpectacleAfterimages(t *testing.T) {
	e := NewEffects()
	snap := &game.MatchSnapshot{
		TickNumber: 3,
		Player: &game.FighterSnapshot{
			Side:          game.SidePlayer,
			SpectacleMode: true,
			Hurtbox:       game.Box{Left: 100, Right: 200, Bottom: 0, Top: 300},
		},
		Enemy: &game.FighterSnapshot{Side: game.SideEnemy},
	}
	e.Advance(snap)

	if len(e.afterimages) != 1 {
		t.Fatalf("afterimages = %d, want 1", len(e.afterimages))
	}
	a := e.afterimages[0]
	if a.Box != snap.Player.Hurtbox || a.Color != playerColor {
		t.Errorf("afterimage = %+v", a)
	}
}

func TestEffectsBoundedAndBonusShake(t *testing.T) {
	e := NewEffects()
	for i := 0; i < MaxEffects*2; i++ {
		e.Observe(hitEvent(1, true))
	}
	if len(e.flashes) != MaxEffects {
		t.Errorf("flashes = %d, want cap %d", len(e.flashes), MaxEffects)
	}

	e.Observe(game.NewEvent(game.EventTypeBonusHit, 0, "player", game.BonusPayload{Damage: 10, HP: 0, Broken: true}))
	if e.shake.Intensity != MaxShakeIntensity {
		t.Errorf("bonus shake intensity = %v, want %v", e.shake.Intensity, MaxShakeIntensity)
	}
}

func TestNewScreenShakeCapped(t *testing.T) {
	s := NewScreenShake(100)
	if s.Intensity != MaxShakeIntensity {
		t.Errorf("intensity = %v, want %v", s.Intensity, MaxShakeIntensity)
	}
	for s.Update(1) {
	}
	if s.Duration > 0 && s.Intensity > 0.5 {
		t.Errorf("shake never ended: %+v", s)
	}
}
