package game

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Phase is the match-level state
type Phase uint8

const (
	PhaseTitle Phase = iota
	PhaseCharSelect
	PhaseIntroCutscene
	PhaseRoundStart
	PhaseFighting
	PhaseRoundEnd
	PhaseFinishHim
	PhaseLoseCutscene
	PhaseGameOver
	PhaseBonusStage
)

var phaseNames = [...]string{
	PhaseTitle:         "TITLE",
	PhaseCharSelect:    "CHAR_SELECT",
	PhaseIntroCutscene: "INTRO_CUTSCENE",
	PhaseRoundStart:    "ROUND_START",
	PhaseFighting:      "FIGHTING",
	PhaseRoundEnd:      "ROUND_END",
	PhaseFinishHim:     "FINISH_HIM",
	PhaseLoseCutscene:  "LOSE_CUTSCENE",
	PhaseGameOver:      "GAME_OVER",
	PhaseBonusStage:    "BONUS_STAGE",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("PHASE(%d)", uint8(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a canonical phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// ErrWrongPhase is returned by commands that the current phase does not accept
var ErrWrongPhase = errors.New("not available in this phase")

// Banner text
const (
	MsgFinishHim      = "CRITIQUE HIM!"
	MsgGetCloser      = "GET CLOSER!"
	MsgTimeOver       = "TIME OVER"
	MsgDraw           = "MUTUAL DESTRUCTION"
	MsgGameOver       = "GAME OVER"
	MsgLadderComplete = "YOU ARE THE SITUATION"
	MsgBonusStart     = "SMASH THE COMMODITY"
	MsgBonusDamaged   = "COMMODITY DAMAGED"
	MsgBonusBroken    = "COMMODITY-FORM DEMYSTIFIED"
	MsgParry          = "CO-OPTED!"
	MsgSpectacle      = "THE SITUATION HAS BEEN CONSTRUCTED!"
	MsgLocked         = "LOCKED"
)

// RoundStartMessages are shown at successive RoundStartStep intervals
var RoundStartMessages = [3]string{"THESIS...", "ANTITHESIS...", "SYNTHESIZE!"}

// FinishStunFrames pins the loser's stun for the whole finishing window
const FinishStunFrames = 999

// Banner lifetimes in ticks
const (
	flashTicks     = 30
	styleMsgTicks  = 48
	spectacleTicks = 90
)

// MatchConfig holds the match-flow constants
type MatchConfig struct {
	TickRate            int
	RoundSeconds        int
	RoundsToWin         int
	RoundStartStep      int
	RoundEndTicks       int
	FinishWindowTicks   int
	FinisherRange       float64
	GameOverTicks       int
	LadderCompleteTicks int
	LoseCutsceneTicks   int
	BonusTicks          int
	BonusResumeTicks    int
	CabinetHP           float64
	Stage               Stage

	LadderBase []CharacterID
	Boss       CharacterID
	BonusIndex int

	MatchSpawn [2]float64
	RoundSpawn [2]float64
}

// DefaultMatchConfig returns the arcade rules at 60 ticks per second
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TickRate:            60,
		RoundSeconds:        99,
		RoundsToWin:         2,
		RoundStartStep:      48,
		RoundEndTicks:       120,
		FinishWindowTicks:   300,
		FinisherRange:       350,
		GameOverTicks:       72,
		LadderCompleteTicks: 300,
		LoseCutsceneTicks:   180,
		BonusTicks:          1800,
		BonusResumeTicks:    240,
		CabinetHP:           400,
		Stage:               DefaultStage,
		LadderBase:          []CharacterID{"bureaucrat", "professor", "maoist"},
		Boss:                "debord",
		BonusIndex:          2,
		MatchSpawn:          [2]float64{850, 1250},
		RoundSpawn:          [2]float64{1000, 1400},
	}
}

// gameOverNext is what GAME_OVER hands over to when it expires
type gameOverNext uint8

const (
	nextAdvanceLadder gameOverNext = iota
	nextCharSelect
)

// tickMode selects which parts of the simulation run in a phase
type tickMode uint8

const (
	modePassive tickMode = iota // physics only, no intents or collisions
	modeFight
	modeFinish
	modeBonus
)

// Match is the single authoritative simulation state. It is not safe for
// concurrent use; Engine serializes access.
type Match struct {
	ID string

	cfg    MatchConfig
	roster *Roster
	policy Policy

	phase      Phase
	phaseTicks int
	tick       uint64

	timer      int
	timerTicks int
	hitstop    int

	message      string
	messageTicks int

	fighters    [2]*Fighter
	projectiles []*Projectile
	controller  Controller

	ladder     Ladder
	versus     bool
	unlocked   bool
	lastWinner Side
	hasWinner  bool

	finishTicks int
	fatality    *FatalitySequence
	bonus       *BonusStage
	next        gameOverNext
	cursor      int

	events []Event
}

// NewMatch creates a match on the title screen
func NewMatch(cfg MatchConfig, roster *Roster, policy Policy) *Match {
	if roster == nil {
		roster = MustDefaultRoster()
	}
	m := &Match{
		ID:          uuid.NewString(),
		cfg:         cfg,
		roster:      roster,
		policy:      policy,
		timer:       cfg.RoundSeconds,
		projectiles: make([]*Projectile, 0, MaxProjectiles),
	}
	m.fighters[SidePlayer] = NewFighter(SidePlayer, nil, cfg.MatchSpawn[SidePlayer])
	return m
}

// Accessors

func (m *Match) Phase() Phase                { return m.phase }
func (m *Match) PhaseTicks() int             { return m.phaseTicks }
func (m *Match) Tick() uint64                { return m.tick }
func (m *Match) Timer() int                  { return m.timer }
func (m *Match) Hitstop() int                { return m.hitstop }
func (m *Match) Message() string             { return m.message }
func (m *Match) Fighter(side Side) *Fighter  { return m.fighters[side] }
func (m *Match) Projectiles() []*Projectile  { return m.projectiles }
func (m *Match) Ladder() Ladder              { return m.ladder }
func (m *Match) BossUnlocked() bool          { return m.unlocked }
func (m *Match) Bonus() *BonusStage          { return m.bonus }
func (m *Match) Fatality() *FatalitySequence { return m.fatality }
func (m *Match) Controller() *Controller     { return &m.controller }
func (m *Match) Config() MatchConfig         { return m.cfg }
func (m *Match) Roster() *Roster             { return m.roster }

// LastWinner returns the side that won the latest round, if any
func (m *Match) LastWinner() (Side, bool) { return m.lastWinner, m.hasWinner }

// SetPolicy swaps the opponent's intent source
func (m *Match) SetPolicy(p Policy) { m.policy = p }

// Press records a button press for the human fighter
func (m *Match) Press(b Button) { m.controller.Press(b) }

// Release records a button release for the human fighter
func (m *Match) Release(b Button) { m.controller.Release(b) }

// DrainEvents returns and clears the events produced since the last drain
func (m *Match) DrainEvents() []Event {
	out := m.events
	m.events = nil
	return out
}

func (m *Match) emit(t EventType, side string, payload interface{}) {
	m.events = append(m.events, NewEvent(t, m.tick, side, payload))
}

func (m *Match) sound(cue SoundCue) {
	m.emit(EventTypeSound, "", SoundPayload{Cue: cue})
}

// say sets the banner; ticks <= 0 keeps it until replaced
func (m *Match) say(text string, ticks int) {
	m.message = text
	m.messageTicks = ticks
	m.emit(EventTypeMessage, "", MessagePayload{Text: text})
}

func (m *Match) setPhase(p Phase) {
	from := m.phase
	m.phase = p
	m.phaseTicks = 0
	m.emit(EventTypePhase, "", PhasePayload{From: from, To: p})
}

// SelectCharacter picks the player's character and starts a ladder run
func (m *Match) SelectCharacter(id CharacterID) error {
	if m.phase != PhaseCharSelect && m.phase != PhaseTitle {
		return fmt.Errorf("select %s during %s: %w", id, m.phase, ErrWrongPhase)
	}
	c, ok := m.roster.Get(id)
	if !ok {
		return fmt.Errorf("select %s: %w", id, ErrUnknownCharacter)
	}
	if c.Boss && !m.unlocked {
		return fmt.Errorf("select %s: %w", id, ErrCharacterLocked)
	}
	m.versus = false
	m.ladder = BuildLadder(id, m.cfg.LadderBase, m.cfg.Boss)
	m.fighters[SidePlayer] = NewFighter(SidePlayer, c, m.cfg.MatchSpawn[SidePlayer])
	m.emit(EventTypeLadder, SidePlayer.String(), LadderPayload{Index: 0, Opponent: m.ladder.Order[0]})
	m.startMatch()
	return nil
}

// StartVersus begins a single match against a chosen opponent, skipping the ladder
func (m *Match) StartVersus(player, opponent CharacterID) error {
	if m.phase != PhaseCharSelect && m.phase != PhaseTitle {
		return fmt.Errorf("versus %s during %s: %w", player, m.phase, ErrWrongPhase)
	}
	pc, ok := m.roster.Get(player)
	if !ok {
		return fmt.Errorf("versus %s: %w", player, ErrUnknownCharacter)
	}
	// The boss may be fought but not played before the ladder is cleared
	if pc.Boss && !m.unlocked {
		return fmt.Errorf("versus %s: %w", player, ErrCharacterLocked)
	}
	if _, ok := m.roster.Get(opponent); !ok {
		return fmt.Errorf("versus %s: %w", opponent, ErrUnknownCharacter)
	}
	m.versus = true
	m.ladder = Ladder{Order: []CharacterID{opponent}, BonusDone: true}
	m.fighters[SidePlayer] = NewFighter(SidePlayer, pc, m.cfg.MatchSpawn[SidePlayer])
	m.startMatch()
	m.startRound()
	return nil
}

// startMatch sets up the fight against the current ladder opponent
func (m *Match) startMatch() {
	id, ok := m.ladder.Current()
	if !ok {
		return
	}
	c, _ := m.roster.Get(id)
	m.fighters[SideEnemy] = NewFighter(SideEnemy, c, m.cfg.MatchSpawn[SideEnemy])
	m.fighters[SidePlayer].resetForMatch(m.cfg.MatchSpawn[SidePlayer])
	m.fighters[SideEnemy].resetForMatch(m.cfg.MatchSpawn[SideEnemy])
	m.bonus = nil
	m.fatality = nil
	m.hasWinner = false
	m.clearTransient()
	m.setPhase(PhaseIntroCutscene)
}

// startRound resets both fighters to round spawn and replays the countdown
func (m *Match) startRound() {
	if m.fighters[SideEnemy] == nil {
		return
	}
	for side, f := range m.fighters {
		f.resetForRound(m.cfg.RoundSpawn[side])
	}
	m.clearTransient()
	m.timer = m.cfg.RoundSeconds
	m.timerTicks = 0
	if r, ok := m.policy.(Resetter); ok {
		r.Reset()
	}
	m.setPhase(PhaseRoundStart)
	m.say(RoundStartMessages[0], 0)
	m.sound(SoundRoundStart)
}

// clearTransient drops entities that must never outlive a round
func (m *Match) clearTransient() {
	m.projectiles = m.projectiles[:0]
	m.hitstop = 0
	m.controller.Reset()
}

// Step advances the match by one tick
func (m *Match) Step() {
	m.tick++
	if m.hitstop > 0 {
		m.hitstop--
		return
	}
	m.phaseTicks++
	if m.messageTicks > 0 {
		m.messageTicks--
		if m.messageTicks == 0 {
			m.message = ""
		}
	}

	switch m.phase {
	case PhaseTitle:
		if m.controller.Taps().Has(ButtonConfirm) {
			m.setPhase(PhaseCharSelect)
		}
	case PhaseCharSelect:
		m.stepCharSelect()
	case PhaseIntroCutscene:
		if m.controller.Taps().Has(ButtonConfirm) {
			m.startRound()
		}
	case PhaseRoundStart:
		m.simulate(modePassive)
		m.stepRoundStart()
	case PhaseFighting:
		m.simulate(modeFight)
		if m.phase == PhaseFighting {
			m.runTimer()
		}
	case PhaseRoundEnd:
		m.simulate(modePassive)
		if m.phaseTicks >= m.cfg.RoundEndTicks {
			m.startRound()
		}
	case PhaseFinishHim:
		m.stepFinishHim()
	case PhaseLoseCutscene:
		m.simulate(modePassive)
		if m.controller.Taps().Has(ButtonConfirm) || m.phaseTicks >= m.cfg.LoseCutsceneTicks {
			m.ladder.Reset()
			m.fighters[SideEnemy] = nil
			m.setPhase(PhaseTitle)
		}
	case PhaseGameOver:
		m.simulate(modePassive)
		m.stepGameOver()
	case PhaseBonusStage:
		m.stepBonus()
	}

	m.controller.EndTick()
}

func (m *Match) stepCharSelect() {
	ids := m.roster.IDs()
	if len(ids) == 0 {
		return
	}
	taps := m.controller.Taps()
	switch {
	case taps.Has(ButtonLeft):
		m.cursor = (m.cursor - 1 + len(ids)) % len(ids)
		m.sound(SoundMenuMove)
	case taps.Has(ButtonRight):
		m.cursor = (m.cursor + 1) % len(ids)
		m.sound(SoundMenuMove)
	}
	if m.cursor >= len(ids) {
		m.cursor = 0
	}
	if taps.Has(ButtonConfirm) {
		if err := m.SelectCharacter(ids[m.cursor]); errors.Is(err, ErrCharacterLocked) {
			m.say(MsgLocked, flashTicks)
		}
	}
}

func (m *Match) stepRoundStart() {
	step := m.cfg.RoundStartStep
	switch m.phaseTicks {
	case step:
		m.say(RoundStartMessages[1], 0)
	case 2 * step:
		m.say(RoundStartMessages[2], 0)
	}
	if m.phaseTicks >= 3*step {
		m.say("", 0)
		m.setPhase(PhaseFighting)
	}
}

func (m *Match) runTimer() {
	m.timerTicks++
	if m.timerTicks < m.cfg.TickRate {
		return
	}
	m.timerTicks = 0
	if m.timer > 0 {
		m.timer--
	}
	if m.timer == 0 {
		m.timeOver()
	}
}

// simulate runs one tick of fighter simulation in the given mode
func (m *Match) simulate(mode tickMode) {
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]

	m.bookkeep(p)
	m.bookkeep(e)

	switch mode {
	case modeFight, modeBonus:
		m.applyIntent(p, Interpret(p, &m.controller, false))
		if mode == modeFight && e != nil && m.policy != nil {
			m.applyIntent(e, m.policy.Decide(m.observe(e, p)))
		}
	case modeFinish:
		m.applyIntent(p, Interpret(p, &m.controller, true))
	}

	for _, f := range m.fighters {
		if f != nil {
			Integrate(f, m.cfg.Stage)
		}
	}

	if e != nil {
		m.settle(p, e.X)
		m.settle(e, p.X)
	} else {
		m.settle(p, CabinetX)
	}

	m.updateProjectiles(mode)

	switch mode {
	case modeFight:
		m.resolveMelee(p, e)
		m.resolveMelee(e, p)
		m.checkKO()
	case modeBonus:
		m.resolveBonusSwing(p)
	}
}

// bookkeep advances per-fighter counters at the start of a tick
func (m *Match) bookkeep(f *Fighter) {
	if f == nil {
		return
	}
	f.ActionFrame++
	if f.SpectacleMode {
		f.SpectacleFrames--
		if f.SpectacleFrames <= 0 {
			f.SpectacleMode, f.SpectacleFrames = false, 0
		}
	}
	if f.StunFrames > 0 && !f.frozen {
		f.StunFrames--
		if f.StunFrames == 0 && stunned.has(f.Action) {
			f.force(ActionIdle)
		}
	}
}

// settle ends finished actions and fixes facing after physics
func (m *Match) settle(f *Fighter, opponentX float64) {
	if f == nil || f.frozen {
		return
	}
	switch {
	case f.Action == ActionParry:
		if f.ActionFrame >= ParryFrames {
			f.force(ActionIdle)
		}
	case f.Action.IsAttack():
		move := m.roster.Move(f.Character, f.Action)
		if f.ActionFrame >= move.TotalFrames()+AttackRecoveryBuffer {
			f.force(ActionIdle)
		}
	}
	if freeActions.has(f.Action) && f.Airborne() {
		f.force(ActionJump)
	}
	f.faceTowards(opponentX)
}

func (m *Match) observe(self, opponent *Fighter) Observation {
	return Observation{Tick: m.tick, Self: m.fighterSnapshot(self), Opponent: m.fighterSnapshot(opponent)}
}

// applyIntent turns an intent into fighter mutations
func (m *Match) applyIntent(f *Fighter, in Intent) {
	if f == nil {
		return
	}
	side := f.Side.String()

	if in.Spectacle && f.ActivateSpectacle() {
		m.emit(EventTypeSpectacle, side, nil)
		m.sound(SoundSpectacle)
		m.say(MsgSpectacle, spectacleTicks)
	}
	if in.Parry && f.Parry() {
		m.emit(EventTypeParry, side, nil)
		m.sound(SoundParry)
		m.say(MsgParry, flashTicks)
	}

	if m.phase == PhaseFinishHim && in.Finisher {
		m.tryFinisher()
		return
	}

	if !f.CanAct() {
		return
	}

	if in.StyleSwitch {
		f.SwitchStyle()
		name := ""
		if f.Character != nil && f.StyleIndex < len(f.Character.Styles) {
			name = f.Character.Styles[f.StyleIndex].Name
		}
		m.emit(EventTypeStyle, side, StylePayload{Index: f.StyleIndex, Name: name})
		if f.Side == SidePlayer && name != "" {
			m.say("STYLE: "+strings.ToUpper(name), styleMsgTicks)
		}
	}

	scale := in.WalkScale
	if scale == 0 {
		scale = 1
	}

	if f.Action == ActionJump || f.Airborne() {
		if in.Attack == ActionJumpAttackP || in.Attack == ActionJumpAttackK {
			m.performAttack(f, in.Attack)
			return
		}
		if in.Walk != 0 {
			limit := walkSpeed(f) * AirSpeedFactor
			f.VX = math.Max(-limit, math.Min(limit, f.VX+in.Walk*AirControlStep))
		}
		return
	}

	if in.HasAttack() {
		m.performAttack(f, in.Attack)
		return
	}

	switch {
	case in.Block:
		if f.Action == ActionBlock || f.Enter(ActionBlock) {
			f.IsBlocking = true
		}
	case in.Jump:
		if f.Grounded() && f.Enter(ActionJump) {
			f.VY = JumpForce
			f.VX = in.Walk * walkSpeed(f) * scale
		}
	case in.Crouch:
		if f.Action == ActionCrouch || f.Enter(ActionCrouch) {
			f.VX = 0
		}
	case in.Walk != 0:
		f.X = m.cfg.Stage.Clamp(f.X + in.Walk*walkSpeed(f)*scale)
		want := ActionWalkBackward
		if (in.Walk > 0) != f.FacingLeft {
			want = ActionWalkForward
		}
		if f.Action != want {
			f.Enter(want)
		}
	default:
		if f.Action != ActionIdle {
			f.Enter(ActionIdle)
		}
	}
}

// performAttack starts an attack action and casts projectiles
func (m *Match) performAttack(f *Fighter, a Action) bool {
	if a.IsCrouching() && f.Action != ActionCrouch && f.Grounded() {
		f.Enter(ActionCrouch)
	}
	if !f.Enter(a) {
		return false
	}
	move := m.roster.Move(f.Character, a)
	if move != nil && move.IsProjectile {
		m.spawnProjectile(f, move)
	}
	return true
}

func (m *Match) spawnProjectile(f *Fighter, move *MoveDefinition) {
	if len(m.projectiles) >= MaxProjectiles {
		return
	}
	p := NewProjectile(f, move, attackDamage(f, move))
	m.projectiles = append(m.projectiles, p)
	m.emit(EventTypeProjectile, f.Side.String(), ProjectilePayload{ID: p.ID, Move: move.Name, X: p.X, Y: p.Y})
	m.sound(SoundProjectile)
}

func (m *Match) updateProjectiles(mode tickMode) {
	alive := m.projectiles[:0]
	for _, p := range m.projectiles {
		if !p.Update(m.cfg.Stage) {
			continue
		}
		switch mode {
		case modeFight:
			if target := m.fighters[p.Owner.Other()]; target != nil && p.CheckHit(target) {
				m.projectileHit(p, target)
				continue
			}
		case modeBonus:
			if p.Owner == SidePlayer && m.bonus != nil && m.bonus.Box().Contains(p.X, p.Y) {
				m.hitCabinet(p.Damage)
				continue
			}
		}
		alive = append(alive, p)
	}
	for i := len(alive); i < len(m.projectiles); i++ {
		m.projectiles[i] = nil
	}
	m.projectiles = alive
}

func (m *Match) projectileHit(p *Projectile, target *Fighter) {
	attacker := m.fighters[p.Owner]
	impact := projectileImpact(p.Damage)
	if p.Move != nil {
		impact.Name = p.Move.Name
	}
	res := ResolveHit(attacker, target, impact, p.Damage, p.direction(), false)
	m.afterHit(attacker, res)
}

// resolveMelee checks one ordered attacker/defender pair
func (m *Match) resolveMelee(atk, def *Fighter) {
	if m.phase != PhaseFighting || atk == nil || def == nil {
		return
	}
	if !atk.Action.IsAttack() || atk.HP <= 0 || def.HP <= 0 || def.Action.IsTerminal() {
		return
	}
	if atk.hasLastHit && atk.lastHit == atk.Action {
		return
	}
	move := m.roster.Move(atk.Character, atk.Action)
	if !connects(move) || !move.InActiveWindow(atk.ActionFrame) {
		return
	}
	if !MeleeHit(atk, def, move) {
		return
	}
	atk.lastHit, atk.hasLastHit = atk.Action, true

	dir := atk.direction()
	if def.X > atk.X {
		dir = 1
	} else if def.X < atk.X {
		dir = -1
	}
	res := ResolveHit(atk, def, move, attackDamage(atk, move), dir, true)
	m.afterHit(atk, res)
}

func (m *Match) afterHit(atk *Fighter, res HitResult) {
	side := atk.Side.String()
	switch {
	case res.Blocked:
		m.emit(EventTypeBlock, side, res)
		m.sound(SoundBlock)
	case res.Damage >= HeavyHitDamage:
		m.emit(EventTypeHit, side, res)
		m.sound(SoundHitHeavy)
	default:
		m.emit(EventTypeHit, side, res)
		m.sound(SoundHitLight)
	}
	m.hitstop = max(m.hitstop, res.Hitstop)

	if res.Blocked {
		return
	}
	if i := comboMilestone(res.Combo); i >= 0 {
		m.emit(EventTypeCombo, side, ComboPayload{Count: res.Combo, Title: atk.Character.ComboTitle(i)})
		m.sound(SoundCombo)
	}
}

func (m *Match) checkKO() {
	if m.phase != PhaseFighting {
		return
	}
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]
	switch {
	case e.HP <= 0:
		m.endRound(SidePlayer, false)
	case p.HP <= 0:
		m.endRound(SideEnemy, false)
	}
}

func (m *Match) timeOver() {
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]
	p.force(ActionTimeOver)
	e.force(ActionTimeOver)
	switch {
	case p.HP > e.HP:
		m.endRound(SidePlayer, true)
	case e.HP > p.HP:
		m.endRound(SideEnemy, true)
	default:
		m.clearTransient()
		m.emit(EventTypeRoundEnd, "", RoundPayload{
			PlayerWins: p.RoundsWon, EnemyWins: e.RoundsWon, TimeOver: true, Draw: true,
		})
		m.say(MsgDraw, 0)
		m.setPhase(PhaseRoundEnd)
	}
}

// endRound credits a round and decides between reset, finishing window and defeat
func (m *Match) endRound(winner Side, timeOver bool) {
	w, l := m.fighters[winner], m.fighters[winner.Other()]
	w.RoundsWon++
	m.lastWinner, m.hasWinner = winner, true
	m.clearTransient()

	if !timeOver {
		m.emit(EventTypeKO, winner.String(), nil)
		w.force(ActionVictory)
		l.force(ActionDefeat)
	}
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]
	m.emit(EventTypeRoundEnd, winner.String(), RoundPayload{
		Winner: winner.String(), PlayerWins: p.RoundsWon, EnemyWins: e.RoundsWon, TimeOver: timeOver,
	})

	if w.RoundsWon >= m.cfg.RoundsToWin {
		m.emit(EventTypeMatchEnd, winner.String(), RoundPayload{
			Winner: winner.String(), PlayerWins: p.RoundsWon, EnemyWins: e.RoundsWon, TimeOver: timeOver,
		})
		if winner == SidePlayer {
			m.enterFinishHim()
			return
		}
		m.say(MsgGameOver, 0)
		m.setPhase(PhaseLoseCutscene)
		return
	}

	name := strings.ToUpper(string(w.ID()))
	if w.Character != nil {
		name = strings.ToUpper(w.Character.Name)
	}
	m.say(name+" WINS ROUND", 0)
	m.setPhase(PhaseRoundEnd)
}

// enterFinishHim freezes the loser for the finishing window
func (m *Match) enterFinishHim() {
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]
	m.clearTransient()
	m.finishTicks = m.cfg.FinishWindowTicks
	m.fatality = nil

	p.force(ActionIdle)
	p.StunFrames = 0
	e.Stun(ActionDizzy, FinishStunFrames)
	e.frozen = true

	m.setPhase(PhaseFinishHim)
	m.emit(EventTypeFinishHim, SidePlayer.String(), nil)
	m.say(MsgFinishHim, 0)
	m.sound(SoundFinishHim)
}

// tryFinisher starts the fatality when the player is close enough
func (m *Match) tryFinisher() {
	if m.fatality != nil {
		return
	}
	p, e := m.fighters[SidePlayer], m.fighters[SideEnemy]
	if math.Abs(p.X-e.X) > m.cfg.FinisherRange {
		m.say(MsgGetCloser, flashTicks)
		return
	}
	name := "FATALITY"
	if p.Character != nil && p.Character.Fatality != "" {
		name = p.Character.Fatality
	}
	m.fatality = NewFatalitySequence(name, SidePlayer)
	p.force(ActionFatality)
	p.frozen = true
	e.force(ActionDefeat)
	e.HP = 0

	m.emit(EventTypeFatality, SidePlayer.String(), FatalityPayload{Name: name, Phase: FatalityCast})
	m.sound(SoundFatalityBegin)
	m.say(name, 0)
}

func (m *Match) stepFinishHim() {
	if m.fatality == nil {
		m.simulate(modeFinish)
		if m.fatality != nil {
			return
		}
		m.finishTicks--
		if m.finishTicks > 0 {
			return
		}
		// Window expired: the opponent falls anyway
		e := m.fighters[SideEnemy]
		e.force(ActionDefeat)
		e.HP = 0
		m.lastWinner, m.hasWinner = SidePlayer, true
		m.say(MsgTimeOver, 0)
		m.next = nextAdvanceLadder
		m.setPhase(PhaseGameOver)
		return
	}

	if m.fatality.Advance() {
		if m.fatality.Done() {
			p := m.fighters[SidePlayer]
			p.frozen = false
			p.force(ActionVictory)
			m.emit(EventTypeFatalityPhase, SidePlayer.String(), FatalityPayload{Name: m.fatality.Name, Phase: FatalityDone})
			m.sound(SoundFatalityEnd)
			m.advanceLadder()
			return
		}
		m.emit(EventTypeFatalityPhase, SidePlayer.String(), FatalityPayload{Name: m.fatality.Name, Phase: m.fatality.Phase})
	}
}

func (m *Match) stepGameOver() {
	limit := m.cfg.GameOverTicks
	if m.next == nextCharSelect {
		limit = m.cfg.LadderCompleteTicks
	}
	if m.phaseTicks < limit {
		return
	}
	switch m.next {
	case nextCharSelect:
		m.fighters[SideEnemy] = nil
		m.say("", 0)
		m.setPhase(PhaseCharSelect)
	default:
		m.advanceLadder()
	}
}

// advanceLadder moves past a beaten opponent
func (m *Match) advanceLadder() {
	m.fatality = nil
	for _, f := range m.fighters {
		if f != nil {
			f.frozen = false
		}
	}
	complete := m.ladder.Advance()
	opponent, _ := m.ladder.Current()
	m.emit(EventTypeLadder, SidePlayer.String(), LadderPayload{Index: m.ladder.Index, Opponent: opponent, Complete: complete})

	if complete {
		if !m.versus {
			m.unlocked = true
			m.say(MsgLadderComplete, 0)
		}
		m.next = nextCharSelect
		m.setPhase(PhaseGameOver)
		return
	}
	if m.ladder.Index == m.cfg.BonusIndex && !m.ladder.BonusDone {
		m.enterBonus()
		return
	}
	m.startMatch()
}

func (m *Match) enterBonus() {
	m.fighters[SideEnemy] = nil
	m.fighters[SidePlayer].resetForMatch(m.cfg.MatchSpawn[SidePlayer])
	m.clearTransient()
	m.bonus = NewBonusStage(m.cfg.CabinetHP, m.cfg.BonusTicks)
	m.setPhase(PhaseBonusStage)
	m.say(MsgBonusStart, 0)
}

func (m *Match) stepBonus() {
	b := m.bonus
	if b == nil {
		return
	}
	if b.over {
		m.simulate(modePassive)
		b.resume--
		if b.resume <= 0 {
			m.ladder.BonusDone = true
			m.startMatch()
		}
		return
	}

	m.simulate(modeBonus)
	if b.Broken {
		return
	}
	b.TicksLeft--
	if b.TicksLeft <= 0 {
		b.TicksLeft = 0
		m.finishBonus(MsgTimeOver)
	}
}

func (m *Match) finishBonus(msg string) {
	m.bonus.over = true
	m.bonus.resume = m.cfg.BonusResumeTicks
	m.projectiles = m.projectiles[:0]
	m.say(msg, 0)
}

// resolveBonusSwing lets any attack connect once against the cabinet
func (m *Match) resolveBonusSwing(f *Fighter) {
	if m.bonus == nil || m.bonus.over || !f.Action.IsAttack() {
		return
	}
	if f.hasLastHit && f.lastHit == f.Action {
		return
	}
	swing := bonusSwingMove(m.roster.Move(f.Character, f.Action))
	if swing == nil || !swing.InActiveWindow(f.ActionFrame) {
		return
	}
	if !Hitbox(f, swing).Overlaps(m.bonus.Box()) {
		return
	}
	f.lastHit, f.hasLastHit = f.Action, true
	m.hitCabinet(attackDamage(f, swing))
}

func (m *Match) hitCabinet(damage float64) {
	b := m.bonus
	if b == nil || b.over {
		return
	}
	broke := b.Damage(damage)
	m.emit(EventTypeBonusHit, SidePlayer.String(), BonusPayload{Damage: damage, HP: b.HP, Broken: broke})
	m.sound(SoundHitHeavy)
	m.hitstop = max(m.hitstop, BlockHitstop)
	if broke {
		m.finishBonus(MsgBonusBroken)
		return
	}
	m.say(MsgBonusDamaged, flashTicks/2)
}

// FillSnapshot copies the match into a pooled snapshot
func (m *Match) FillSnapshot(s *MatchSnapshot) {
	s.TickNumber = m.tick
	s.MatchID = m.ID
	s.Phase = m.phase
	s.PhaseTicks = m.phaseTicks
	s.Timer = m.timer
	s.Message = m.message
	s.Hitstop = m.hitstop
	if m.phase == PhaseFinishHim {
		s.FinishTicks = m.finishTicks
	}

	if f := m.fighters[SidePlayer]; f != nil {
		s.player = m.fighterSnapshot(f)
		s.Player = &s.player
	}
	if f := m.fighters[SideEnemy]; f != nil {
		s.enemy = m.fighterSnapshot(f)
		s.Enemy = &s.enemy
	}
	for _, p := range m.projectiles {
		s.Projectiles = append(s.Projectiles, p.ToSnapshot())
	}

	s.Ladder = LadderSnapshot{Order: m.ladder.Order, Index: m.ladder.Index}
	if m.bonus != nil {
		s.Bonus = m.bonus.ToSnapshot()
	}
	if m.fatality != nil {
		s.Fatality = &FatalitySnapshot{Name: m.fatality.Name, Phase: m.fatality.Phase, Ticks: m.fatality.Ticks}
	}
	if m.phase == PhaseCharSelect || m.phase == PhaseTitle {
		s.Roster = m.roster.IDs()
	}
	s.Cursor = m.cursor
	s.Unlocked = m.unlocked
}

// Snapshot returns a standalone copy of the current state
func (m *Match) Snapshot() MatchSnapshot {
	var s MatchSnapshot
	m.FillSnapshot(&s)
	return s.Clone()
}

func (m *Match) fighterSnapshot(f *Fighter) FighterSnapshot {
	s := FighterSnapshot{
		Side:            f.Side,
		Character:       f.ID(),
		X:               f.X,
		Y:               f.Y,
		VX:              f.VX,
		VY:              f.VY,
		HP:              f.HP,
		Meter:           f.Meter,
		ComboCount:      f.ComboCount,
		Action:          f.Action,
		ActionFrame:     f.ActionFrame,
		FacingLeft:      f.FacingLeft,
		StunFrames:      f.StunFrames,
		IsBlocking:      f.IsBlocking,
		RoundsWon:       f.RoundsWon,
		StyleIndex:      f.StyleIndex,
		SpectacleMode:   f.SpectacleMode,
		SpectacleFrames: f.SpectacleFrames,
		Hurtbox:         f.Hurtbox(),
	}
	if c := f.Character; c != nil {
		s.Name = c.Name
		if f.StyleIndex < len(c.Styles) {
			s.StyleName = c.Styles[f.StyleIndex].Name
		}
	}
	if f.Action.IsAttack() {
		if move := m.roster.Move(f.Character, f.Action); connects(move) && move.InActiveWindow(f.ActionFrame) {
			hb := Hitbox(f, move)
			s.Hitbox = &hb
		}
	}
	return s
}
