package game

import "fmt"

// Action is the fighter state-machine state
type Action uint8

const (
	ActionIdle Action = iota
	ActionWalkForward
	ActionWalkBackward
	ActionCrouch
	ActionJump
	ActionBlock
	ActionAttackLP
	ActionAttackRP
	ActionAttackLK
	ActionAttackRK
	ActionJumpAttackP
	ActionJumpAttackK
	ActionCrouchAttackP
	ActionCrouchAttackK
	ActionSpecial1
	ActionSpecial2
	ActionSpecial3
	ActionSpecial4
	ActionHitStun
	ActionGrabbed
	ActionKnockdown
	ActionDizzy
	ActionVictory
	ActionDefeat
	ActionParry
	ActionTimeOver
	ActionIntro
	ActionFatality

	actionCount
)

var actionNames = [actionCount]string{
	ActionIdle:          "IDLE",
	ActionWalkForward:   "WALK_FORWARD",
	ActionWalkBackward:  "WALK_BACKWARD",
	ActionCrouch:        "CROUCH",
	ActionJump:          "JUMP",
	ActionBlock:         "BLOCK",
	ActionAttackLP:      "ATTACK_LP",
	ActionAttackRP:      "ATTACK_RP",
	ActionAttackLK:      "ATTACK_LK",
	ActionAttackRK:      "ATTACK_RK",
	ActionJumpAttackP:   "JUMP_ATTACK_P",
	ActionJumpAttackK:   "JUMP_ATTACK_K",
	ActionCrouchAttackP: "CROUCH_ATTACK_P",
	ActionCrouchAttackK: "CROUCH_ATTACK_K",
	ActionSpecial1:      "SPECIAL_1",
	ActionSpecial2:      "SPECIAL_2",
	ActionSpecial3:      "SPECIAL_3",
	ActionSpecial4:      "SPECIAL_4",
	ActionHitStun:       "HIT_STUN",
	ActionGrabbed:       "GRABBED",
	ActionKnockdown:     "KNOCKDOWN",
	ActionDizzy:         "DIZZY",
	ActionVictory:       "VICTORY",
	ActionDefeat:        "DEFEAT",
	ActionParry:         "PARRY",
	ActionTimeOver:      "TIME_OVER",
	ActionIntro:         "INTRO",
	ActionFatality:      "FATALITY",
}

// ParryFrames is how long the PARRY recovery state lasts
const ParryFrames = 10

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("ACTION(%d)", uint8(a))
}

// ParseAction resolves a canonical action name
func ParseAction(s string) (Action, bool) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), true
		}
	}
	return ActionIdle, false
}

// MarshalText encodes the action as its canonical name
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a canonical action name
func (a *Action) UnmarshalText(text []byte) error {
	parsed, ok := ParseAction(string(text))
	if !ok {
		return fmt.Errorf("unknown action %q", string(text))
	}
	*a = parsed
	return nil
}

// IsAttack reports whether the action can carry a hitbox
func (a Action) IsAttack() bool {
	return a >= ActionAttackLP && a <= ActionSpecial4
}

// IsSpecial reports whether the action is one of the four special slots
func (a Action) IsSpecial() bool {
	return a >= ActionSpecial1 && a <= ActionSpecial4
}

// IsCrouching reports whether the action uses the crouched hurtbox
func (a Action) IsCrouching() bool {
	return a == ActionCrouch || a == ActionCrouchAttackP || a == ActionCrouchAttackK
}

// IsLocked reports whether the action refuses input-driven transitions
func (a Action) IsLocked() bool {
	if a.IsAttack() {
		return true
	}
	switch a {
	case ActionHitStun, ActionGrabbed, ActionKnockdown, ActionIntro, ActionVictory,
		ActionDefeat, ActionFatality, ActionParry, ActionDizzy, ActionTimeOver:
		return true
	}
	return false
}

// IsTerminal reports whether a fighter in this action must not take damage
func (a Action) IsTerminal() bool {
	return a == ActionDefeat || a == ActionFatality
}

type actionSet uint32

func setOf(actions ...Action) actionSet {
	var s actionSet
	for _, a := range actions {
		s |= 1 << a
	}
	return s
}

func (s actionSet) has(a Action) bool { return s&(1<<a) != 0 }

var (
	freeActions = setOf(ActionIdle, ActionWalkForward, ActionWalkBackward, ActionCrouch, ActionBlock)

	groundNormals = setOf(ActionAttackLP, ActionAttackRP, ActionAttackLK, ActionAttackRK,
		ActionSpecial1, ActionSpecial2, ActionSpecial3, ActionSpecial4)

	// reactions can be forced from any state by hits and match flow
	reactions = setOf(ActionHitStun, ActionGrabbed, ActionKnockdown, ActionDizzy,
		ActionVictory, ActionDefeat, ActionTimeOver, ActionIdle, ActionIntro, ActionFatality)

	stunned = setOf(ActionHitStun, ActionGrabbed, ActionKnockdown, ActionDizzy)
)

// transitions lists, per source state, the states input may move it into
var transitions = func() [actionCount]actionSet {
	var t [actionCount]actionSet
	moving := freeActions | setOf(ActionJump) | groundNormals
	for a := Action(0); a < actionCount; a++ {
		if freeActions.has(a) {
			t[a] = moving
		}
	}
	t[ActionCrouch] |= setOf(ActionCrouchAttackP, ActionCrouchAttackK)
	t[ActionJump] = setOf(ActionJump, ActionJumpAttackP, ActionJumpAttackK)
	for a := Action(0); a < actionCount; a++ {
		if stunned.has(a) {
			t[a] |= setOf(ActionParry)
		}
	}
	return t
}()

// CanTransition reports whether input may move a fighter from one action to another.
// Forced reactions (hits, round results) are always legal.
func CanTransition(from, to Action) bool {
	if from >= actionCount || to >= actionCount {
		return false
	}
	if reactions.has(to) {
		return true
	}
	return transitions[from].has(to)
}
