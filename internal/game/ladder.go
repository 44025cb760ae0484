package game

// Ladder is the ordered run of opponents in one arcade session
type Ladder struct {
	Order []CharacterID `json:"order"`
	Index int           `json:"index"`

	// BonusDone records that the bonus stage of this run was played
	BonusDone bool `json:"bonusDone"`
}

// BuildLadder removes the player's own character from the base order and
// appends the boss when it is not already present.
func BuildLadder(player CharacterID, base []CharacterID, boss CharacterID) Ladder {
	order := make([]CharacterID, 0, len(base)+1)
	hasBoss := false
	for _, id := range base {
		if id == player {
			continue
		}
		if id == boss {
			hasBoss = true
		}
		order = append(order, id)
	}
	if boss != "" && !hasBoss && boss != player {
		order = append(order, boss)
	}
	return Ladder{Order: order}
}

// Current returns the opponent at the current index
func (l *Ladder) Current() (CharacterID, bool) {
	if l.Index < 0 || l.Index >= len(l.Order) {
		return "", false
	}
	return l.Order[l.Index], true
}

// Advance moves to the next opponent and reports whether the ladder is finished
func (l *Ladder) Advance() bool {
	l.Index++
	return l.Complete()
}

// Complete reports whether every opponent has been beaten
func (l *Ladder) Complete() bool {
	return l.Index >= len(l.Order)
}

// Reset abandons the run
func (l *Ladder) Reset() {
	*l = Ladder{}
}
