package render

import (
	"encoding/json"
	"image/color"
	"sync"

	"critique-kombat/internal/game"
)

const (
	// MaxShakeIntensity caps camera shake in screen pixels
	MaxShakeIntensity = 14.0

	// MaxEffects bounds each effect list so a hit flurry cannot grow memory
	MaxEffects = 32

	// maxCatchUp is the most ticks advanced for one frame after a gap
	maxCatchUp = 30

	flashTicks      = 5
	shakeTicks      = 8
	afterimageTicks = 8
	afterimageEvery = 3
)

// ImpactFlash is a burst drawn where a hit landed (world units)
type ImpactFlash struct {
	X, Y      float64
	Radius    float64
	MaxRadius float64
	Color     color.RGBA
	Timer     int
}

// NewImpactFlash sizes the burst by the hit's damage
func NewImpactFlash(x, y float64, c color.RGBA, damage float64) ImpactFlash {
	return ImpactFlash{
		X:         x,
		Y:         y,
		Radius:    6,
		MaxRadius: 24 + min(damage, 30)*2,
		Color:     c,
		Timer:     flashTicks,
	}
}

// Update expands and fades the flash, reporting whether it is still alive
func (f *ImpactFlash) Update() bool {
	f.Timer--
	progress := 1 - float64(f.Timer)/flashTicks
	f.Radius = f.MaxRadius * (1 - (1-progress)*(1-progress))
	return f.Timer > 0
}

// Alpha returns the current opacity in [0, 1]
func (f *ImpactFlash) Alpha() float64 {
	return float64(f.Timer) / flashTicks
}

// ScreenShake offsets the whole scene after heavy hits
type ScreenShake struct {
	Intensity float64
	Duration  int
	OffsetX   float64
	OffsetY   float64
}

// NewScreenShake creates a shake, capped at MaxShakeIntensity
func NewScreenShake(intensity float64) ScreenShake {
	return ScreenShake{Intensity: min(intensity, MaxShakeIntensity), Duration: shakeTicks}
}

// Update decays the shake. Offsets come from an LCG seeded with the tick so
// replays of the same match shake the same way.
func (s *ScreenShake) Update(tick uint64) bool {
	s.Duration--
	s.Intensity *= 0.8

	seed := int64(tick) + int64(s.Duration)
	x := float64((seed*1103515245+12345)&0xff) / 256
	y := float64((seed*1103515245*2+12345)&0xff) / 256

	s.OffsetX = (x - 0.5) * 2 * s.Intensity
	s.OffsetY = (y - 0.5) * 2 * s.Intensity

	return s.Duration > 0 && s.Intensity > 0.5
}

// Afterimage is a fading copy of a fighter's hurtbox during spectacle mode
type Afterimage struct {
	Box   game.Box
	Color color.RGBA
	Alpha float64
	Timer int
}

// Update fades the afterimage
func (a *Afterimage) Update() bool {
	a.Timer--
	a.Alpha *= 0.75
	return a.Timer > 0 && a.Alpha > 0.1
}

// Effects tracks transient visuals. Events add effects; Advance ages them
// by however many simulation ticks passed since the last frame.
type Effects struct {
	mu          sync.Mutex
	flashes     []ImpactFlash
	afterimages []Afterimage
	shake       ScreenShake
	lastTick    uint64
}

// NewEffects creates an empty tracker
func NewEffects() *Effects {
	return &Effects{
		flashes:     make([]ImpactFlash, 0, MaxEffects),
		afterimages: make([]Afterimage, 0, MaxEffects),
	}
}

// Sink returns an event sink for game.Engine.AddEventSink
func (e *Effects) Sink() game.EventSink {
	return e.Observe
}

// Observe turns hit, block and bonus events into effects
func (e *Effects) Observe(ev game.Event) {
	switch ev.Type {
	case game.EventTypeHit, game.EventTypeBlock:
		var res game.HitResult
		if err := json.Unmarshal(ev.Payload, &res); err != nil {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		c := colorHit
		if res.Blocked {
			c = colorBlock
		}
		e.addFlash(NewImpactFlash(res.X, res.Y, c, res.Damage))
		if !res.Blocked && res.Damage >= game.HeavyHitDamage {
			e.shake = NewScreenShake(res.Damage / 2)
		}
	case game.EventTypeBonusHit:
		var p game.BonusPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		if p.Broken {
			e.mu.Lock()
			e.shake = NewScreenShake(MaxShakeIntensity)
			e.mu.Unlock()
		}
	}
}

func (e *Effects) addFlash(f ImpactFlash) {
	if len(e.flashes) == MaxEffects {
		copy(e.flashes, e.flashes[1:])
		e.flashes = e.flashes[:MaxEffects-1]
	}
	e.flashes = append(e.flashes, f)
}

func (e *Effects) addAfterimage(a Afterimage) {
	if len(e.afterimages) == MaxEffects {
		copy(e.afterimages, e.afterimages[1:])
		e.afterimages = e.afterimages[:MaxEffects-1]
	}
	e.afterimages = append(e.afterimages, a)
}

// Advance ages every effect up to snap's tick and spawns spectacle afterimages
func (e *Effects) Advance(snap *game.MatchSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.TickNumber < e.lastTick {
		// New engine or replay: start over
		e.flashes = e.flashes[:0]
		e.afterimages = e.afterimages[:0]
		e.shake = ScreenShake{}
		e.lastTick = snap.TickNumber
	}
	steps := min(snap.TickNumber-e.lastTick, maxCatchUp)
	for i := uint64(0); i < steps; i++ {
		tick := e.lastTick + i + 1
		e.flashes = keepAlive(e.flashes, (*ImpactFlash).Update)
		e.afterimages = keepAlive(e.afterimages, (*Afterimage).Update)
		if e.shake.Duration > 0 && !e.shake.Update(tick) {
			e.shake = ScreenShake{}
		}
		if tick%afterimageEvery == 0 {
			for _, f := range []*game.FighterSnapshot{snap.Player, snap.Enemy} {
				if f != nil && f.SpectacleMode {
					e.addAfterimage(Afterimage{Box: f.Hurtbox, Color: sideColor(f.Side), Alpha: 0.6, Timer: afterimageTicks})
				}
			}
		}
	}
	e.lastTick = snap.TickNumber
}

// keepAlive updates each element in place and drops the expired ones
func keepAlive[T any](items []T, update func(*T) bool) []T {
	out := items[:0]
	for i := range items {
		if update(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// Frame is a copy of the live effects for drawing
type Frame struct {
	Flashes     []ImpactFlash
	Afterimages []Afterimage
	ShakeX      float64
	ShakeY      float64
}

// Current copies the live effects into dst, reusing its slices
func (e *Effects) Current(dst *Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dst.Flashes = append(dst.Flashes[:0], e.flashes...)
	dst.Afterimages = append(dst.Afterimages[:0], e.afterimages...)
	dst.ShakeX, dst.ShakeY = 0, 0
	if e.shake.Duration > 0 {
		dst.ShakeX, dst.ShakeY = e.shake.OffsetX, e.shake.OffsetY
	}
}
