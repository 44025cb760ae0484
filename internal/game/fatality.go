package game

import "fmt"

// FatalityPhase is one scripted step of a finisher
type FatalityPhase uint8

const (
	FatalityCast FatalityPhase = iota
	FatalityCritique
	FatalityExplosion
	FatalityReify
	FatalityDone
)

var fatalityPhaseNames = [...]string{"cast", "critique", "explosion", "reify", "done"}

func (p FatalityPhase) String() string {
	if int(p) < len(fatalityPhaseNames) {
		return fatalityPhaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

func (p FatalityPhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// FatalityDurations are the tick lengths of each phase
var FatalityDurations = [FatalityDone]int{
	FatalityCast:      120,
	FatalityCritique:  300,
	FatalityExplosion: 120,
	FatalityReify:     180,
}

// FatalitySequence drives a finisher by tick count
type FatalitySequence struct {
	Name     string
	Attacker Side
	Phase    FatalityPhase
	Ticks    int
}

// NewFatalitySequence starts a finisher in its cast phase
func NewFatalitySequence(name string, attacker Side) *FatalitySequence {
	return &FatalitySequence{Name: name, Attacker: attacker}
}

// Advance counts one tick and reports whether the phase changed
func (s *FatalitySequence) Advance() bool {
	if s.Done() {
		return false
	}
	s.Ticks++
	if s.Ticks < FatalityDurations[s.Phase] {
		return false
	}
	s.Phase++
	s.Ticks = 0
	return true
}

// Done reports whether the last phase has finished
func (s *FatalitySequence) Done() bool {
	return s.Phase >= FatalityDone
}

// TotalTicks is the length of a full sequence
func (s *FatalitySequence) TotalTicks() int {
	total := 0
	for _, d := range FatalityDurations {
		total += d
	}
	return total
}
