package tui

import (
	"strings"
	"sync"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/gdamore/tcell/v2"
)

// DefaultHoldTime is how long a held button stays down after its last key
// event. Terminals report presses and auto-repeat but never releases, so a
// button is released once repeats stop arriving.
const DefaultHoldTime = 150 * time.Millisecond

// ButtonTarget receives logical button changes; *game.Engine implements it
type ButtonTarget interface {
	Press(b game.Button) bool
	Release(b game.Button) bool
	Tap(b game.Button) bool
}

// KeyName returns the binding name for a key event: the character for
// printable keys and tcell's key name otherwise ("Up", "Enter").
func KeyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		return string(ev.Rune())
	}
	if name, ok := tcell.KeyNames[ev.Key()]; ok {
		return name
	}
	return ""
}

// isHeld reports whether a button is a level (held) input; the rest are
// edge-triggered and sent as taps
func isHeld(b game.Button) bool {
	switch b {
	case game.ButtonUp, game.ButtonDown, game.ButtonLeft, game.ButtonRight, game.ButtonBlock:
		return true
	}
	return false
}

// InputAdapter turns terminal key events into engine button presses
type InputAdapter struct {
	controls config.Controls
	target   ButtonTarget
	hold     time.Duration

	mu       sync.Mutex
	deadline map[game.Button]time.Time
}

// NewInputAdapter creates an adapter. hold <= 0 uses DefaultHoldTime.
func NewInputAdapter(controls config.Controls, target ButtonTarget, hold time.Duration) *InputAdapter {
	if hold <= 0 {
		hold = DefaultHoldTime
	}
	return &InputAdapter{
		controls: controls,
		target:   target,
		hold:     hold,
		deadline: make(map[game.Button]time.Time),
	}
}

// HandleKey applies a key by binding name, reporting whether it was bound.
// Unbound upper-case letters fall back to their lower-case binding so caps
// lock does not disable the keyboard.
func (a *InputAdapter) HandleKey(name string, now time.Time) bool {
	b, ok := a.controls.Button(name)
	if !ok {
		b, ok = a.controls.Button(strings.ToLower(name))
	}
	if !ok {
		return false
	}

	if !isHeld(b) {
		a.target.Tap(b)
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, down := a.deadline[b]; !down {
		a.target.Press(b)
	}
	a.deadline[b] = now.Add(a.hold)
	return true
}

// Expire releases held buttons whose repeats stopped before now
func (a *InputAdapter) Expire(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for b, until := range a.deadline {
		if now.After(until) {
			a.target.Release(b)
			delete(a.deadline, b)
		}
	}
}

// ReleaseAll lifts every held button
func (a *InputAdapter) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for b := range a.deadline {
		a.target.Release(b)
		delete(a.deadline, b)
	}
}

// Held reports whether the adapter is holding b down
func (a *InputAdapter) Held(b game.Button) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.deadline[b]
	return ok
}
