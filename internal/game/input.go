package game

import (
	"fmt"
	"strings"
)

// Button is a logical input, independent of device bindings
type Button uint16

const (
	ButtonUp Button = 1 << iota
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonLP
	ButtonRP
	ButtonLK
	ButtonRK
	ButtonBlock
	ButtonParry
	ButtonStyle
	ButtonConfirm
)

var buttonNames = []struct {
	b    Button
	name string
}{
	{ButtonUp, "UP"}, {ButtonDown, "DOWN"}, {ButtonLeft, "LEFT"}, {ButtonRight, "RIGHT"},
	{ButtonLP, "LP"}, {ButtonRP, "RP"}, {ButtonLK, "LK"}, {ButtonRK, "RK"},
	{ButtonBlock, "BLOCK"}, {ButtonParry, "PARRY"}, {ButtonStyle, "STYLE"}, {ButtonConfirm, "CONFIRM"},
}

func (b Button) String() string {
	for _, n := range buttonNames {
		if n.b == b {
			return n.name
		}
	}
	return fmt.Sprintf("BUTTON(%d)", uint16(b))
}

// ParseButton resolves a logical button name, case-insensitive
func ParseButton(s string) (Button, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, n := range buttonNames {
		if n.name == s {
			return n.b, nil
		}
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// ButtonSet is a set of logical buttons
type ButtonSet uint16

func (s ButtonSet) Has(b Button) bool { return s&ButtonSet(b) != 0 }

func (s ButtonSet) Any(bs ...Button) bool {
	for _, b := range bs {
		if s.Has(b) {
			return true
		}
	}
	return false
}

// Direction is a token in the motion buffer
type Direction uint8

const (
	DirUp Direction = iota + 1
	DirDown
	DirLeft
	DirRight
	// relative tokens used by motion patterns
	DirForward
	DirBack
)

// DirectionBufferSize bounds the motion history
const DirectionBufferSize = 8

// DirectionBuffer is a rolling history of directional presses
type DirectionBuffer struct {
	entries [DirectionBufferSize]Direction
	n       int
}

// Push appends a token, evicting the oldest when full
func (d *DirectionBuffer) Push(dir Direction) {
	if d.n == DirectionBufferSize {
		copy(d.entries[:], d.entries[1:])
		d.n--
	}
	d.entries[d.n] = dir
	d.n++
}

// Clear empties the buffer
func (d *DirectionBuffer) Clear() { d.n = 0 }

// Len returns the number of buffered tokens
func (d *DirectionBuffer) Len() int { return d.n }

// Match reports whether pattern appears as a contiguous run in the buffer.
// Relative tokens are resolved against the facing direction.
func (d *DirectionBuffer) Match(pattern []Direction, facingLeft bool) bool {
	if len(pattern) == 0 || len(pattern) > d.n {
		return false
	}
	resolved := make([]Direction, len(pattern))
	for i, p := range pattern {
		resolved[i] = absolute(p, facingLeft)
	}
	for start := 0; start+len(resolved) <= d.n; start++ {
		ok := true
		for i, p := range resolved {
			if d.entries[start+i] != p {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func absolute(d Direction, facingLeft bool) Direction {
	switch d {
	case DirForward:
		if facingLeft {
			return DirLeft
		}
		return DirRight
	case DirBack:
		if facingLeft {
			return DirRight
		}
		return DirLeft
	}
	return d
}

// Controller tracks held buttons and the taps captured since the last update
type Controller struct {
	held   ButtonSet
	taps   ButtonSet
	buffer DirectionBuffer
}

// Press records a key-down. Repeated presses of a held button are not taps.
func (c *Controller) Press(b Button) {
	if c.held.Has(b) {
		return
	}
	c.held |= ButtonSet(b)
	c.taps |= ButtonSet(b)
	switch b {
	case ButtonUp:
		c.buffer.Push(DirUp)
	case ButtonDown:
		c.buffer.Push(DirDown)
	case ButtonLeft:
		c.buffer.Push(DirLeft)
	case ButtonRight:
		c.buffer.Push(DirRight)
	}
}

// Release records a key-up
func (c *Controller) Release(b Button) {
	c.held &^= ButtonSet(b)
}

// Held returns the buttons currently down
func (c *Controller) Held() ButtonSet { return c.held }

// Taps returns the buttons pressed since the last EndTick
func (c *Controller) Taps() ButtonSet { return c.taps }

// Buffer exposes the motion history
func (c *Controller) Buffer() *DirectionBuffer { return &c.buffer }

// EndTick consumes this tick's taps
func (c *Controller) EndTick() { c.taps = 0 }

// Reset drops all held state, taps and motion history
func (c *Controller) Reset() {
	c.held, c.taps = 0, 0
	c.buffer.Clear()
}

// Intent is what a fighter wants to do this tick. Input and AI both produce it.
type Intent struct {
	Walk        float64 `json:"walk,omitempty"` // -1 left, +1 right
	WalkScale   float64 `json:"walkScale,omitempty"`
	Crouch      bool    `json:"crouch,omitempty"`
	Jump        bool    `json:"jump,omitempty"`
	Block       bool    `json:"block,omitempty"`
	Attack      Action  `json:"attack,omitempty"`
	StyleSwitch bool    `json:"styleSwitch,omitempty"`
	Spectacle   bool    `json:"spectacle,omitempty"`
	Parry       bool    `json:"parry,omitempty"`
	Finisher    bool    `json:"finisher,omitempty"`
}

// HasAttack reports whether an attack was requested
func (in Intent) HasAttack() bool { return in.Attack.IsAttack() }

type specialMotion struct {
	pattern []Direction
	buttons []Button
	action  Action
}

// specialMotions are checked in order; longer motions first so they are reachable
var specialMotions = []specialMotion{
	{[]Direction{DirForward, DirDown, DirForward}, []Button{ButtonLP, ButtonRP}, ActionSpecial3},
	{[]Direction{DirBack, DirDown, DirForward}, []Button{ButtonLK, ButtonRK}, ActionSpecial4},
	{[]Direction{DirDown, DirForward}, []Button{ButtonLP, ButtonRP}, ActionSpecial1},
	{[]Direction{DirDown, DirBack}, []Button{ButtonLK, ButtonRK}, ActionSpecial2},
}

// Interpret maps controller state to an intent for the human fighter.
// A recognized special clears the motion buffer. Motions are only matched
// while the fighter could start one, so a motion entered during stun or
// a jump stays buffered.
func Interpret(f *Fighter, c *Controller, finishing bool) Intent {
	held, taps := c.Held(), c.Taps()
	var in Intent

	if taps.Has(ButtonParry) {
		if held.Has(ButtonDown) && !f.SpectacleMode && f.Meter >= SpectacleCost {
			in.Spectacle = true
			return in
		}
		in.Parry = true
	}
	in.StyleSwitch = taps.Has(ButtonStyle)

	switch {
	case held.Has(ButtonLeft):
		in.Walk = -1
	case held.Has(ButtonRight):
		in.Walk = 1
	}
	in.Crouch = held.Has(ButtonDown)
	in.Jump = held.Has(ButtonUp)
	in.Block = held.Has(ButtonBlock)

	if finishing {
		in.Finisher = taps.Has(ButtonLP)
		return in
	}

	canSpecial := f.CanAct() && f.Action != ActionJump && !f.Airborne()
	for _, sm := range specialMotions {
		if canSpecial && taps.Any(sm.buttons...) && c.buffer.Match(sm.pattern, f.FacingLeft) {
			in.Attack = sm.action
			c.buffer.Clear()
			return in
		}
	}

	switch {
	case f.Airborne():
		if taps.Has(ButtonLP) || taps.Has(ButtonRP) {
			in.Attack = ActionJumpAttackP
		} else if taps.Has(ButtonLK) || taps.Has(ButtonRK) {
			in.Attack = ActionJumpAttackK
		}
	case in.Crouch:
		if taps.Has(ButtonLP) || taps.Has(ButtonRP) {
			in.Attack = ActionCrouchAttackP
		} else if taps.Has(ButtonLK) || taps.Has(ButtonRK) {
			in.Attack = ActionCrouchAttackK
		}
	case taps.Has(ButtonLP):
		in.Attack = ActionAttackLP
	case taps.Has(ButtonRP):
		in.Attack = ActionAttackRP
	case taps.Has(ButtonLK):
		in.Attack = ActionAttackLK
	case taps.Has(ButtonRK):
		in.Attack = ActionAttackRK
	}
	return in
}
