package game

import (
	"log"
	"sync"
	"time"
)

// EventSink receives every event after the tick that produced it
type EventSink func(Event)

// TickObserver receives how long each simulation step took
type TickObserver func(elapsed time.Duration, phase Phase)

// InputQueueSize bounds button edges buffered between ticks
const InputQueueSize = 256

// inputCommand is a button edge queued by any goroutine
type inputCommand struct {
	button Button
	down   bool
}

// Engine runs a Match at a fixed tick rate and fans out its output
type Engine struct {
	mu    sync.RWMutex
	match *Match

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64
	sequence  uint64

	// Button edges from clients, applied at the start of the next tick
	inputs *CommandQueue[inputCommand]

	// Snapshot system for lock-free render separation
	snapshotPool *SnapshotPool

	// Event journal plus live subscribers
	eventLog *EventLog
	sinkMu   sync.RWMutex
	sinks    []EventSink
	observer TickObserver
}

// NewEngine creates an engine around a fresh match on the title screen
func NewEngine(cfg MatchConfig, roster *Roster, policy Policy) *Engine {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultMatchConfig().TickRate
	}
	e := &Engine{
		match:        NewMatch(cfg, roster, policy),
		tickRate:     cfg.TickRate,
		stopChan:     make(chan struct{}),
		snapshotPool: NewSnapshotPool(),
		eventLog:     NewEventLog(),
		inputs:       NewCommandQueue[inputCommand](InputQueueSize),
	}
	e.produceSnapshot()
	return e
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Kombat engine started at %d TPS (match %s)", e.tickRate, e.match.ID)
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Kombat engine stopped")
}

// Running reports whether the ticker is active
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Step advances exactly one tick synchronously
func (e *Engine) Step() {
	e.tick()
}

// tick is called at tickRate times per second
func (e *Engine) tick() {
	e.mu.Lock()
	start := time.Now()
	e.tickCount++
	e.inputs.Drain(e.applyInput)
	e.match.Step()
	events := e.drainEvents()
	phase := e.match.Phase()
	e.produceSnapshot()
	elapsed := time.Since(start)
	observer := e.observer
	e.mu.Unlock()

	e.dispatch(events)
	if observer != nil {
		observer(elapsed, phase)
	}
}

// drainEvents collects the match's events and numbers them (caller holds mu)
func (e *Engine) drainEvents() []Event {
	events := e.match.DrainEvents()
	for i := range events {
		e.sequence++
		events[i].Sequence = e.sequence
	}
	return events
}

func (e *Engine) applyInput(cmd inputCommand) {
	if cmd.down {
		e.match.Press(cmd.button)
	} else {
		e.match.Release(cmd.button)
	}
}

// dispatch routes events outside the simulation lock
func (e *Engine) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	e.sinkMu.RLock()
	sinks := e.sinks
	e.sinkMu.RUnlock()

	for _, ev := range events {
		if ev.Type == EventTypePhase {
			log.Printf("🥊 Phase %s", phaseChange(ev))
		}
		e.eventLog.Emit(ev)
		for _, sink := range sinks {
			sink(ev)
		}
	}
}

func phaseChange(ev Event) string {
	var p PhasePayload
	if err := decodePayload(ev, &p); err != nil {
		return "?"
	}
	return p.From.String() + " → " + p.To.String()
}

// produceSnapshot publishes the current state (caller holds mu)
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	e.match.FillSnapshot(snap)
	e.snapshotPool.PublishWrite()
}

// AddEventSink subscribes to every future event
func (e *Engine) AddEventSink(sink EventSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sinks = append(e.sinks[:len(e.sinks):len(e.sinks)], sink)
}

// SetTickObserver installs the per-tick timing hook; call before Start
func (e *Engine) SetTickObserver(fn TickObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// SetPolicy swaps the opponent's intent source
func (e *Engine) SetPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.match.SetPolicy(p)
}

// Press queues a button press for the human fighter.
// Returns false if the input queue is full.
func (e *Engine) Press(b Button) bool {
	return e.inputs.TryPush(inputCommand{button: b, down: true})
}

// Release queues a button release for the human fighter
func (e *Engine) Release(b Button) bool {
	return e.inputs.TryPush(inputCommand{button: b})
}

// Tap presses and releases a button; the press is seen by the next tick
func (e *Engine) Tap(b Button) bool {
	return e.Press(b) && e.Release(b)
}

// InputsDropped counts button edges refused by a full queue
func (e *Engine) InputsDropped() uint64 { return e.inputs.Dropped() }

// Confirm advances menus and cutscenes
func (e *Engine) Confirm() bool {
	return e.Tap(ButtonConfirm)
}

// SelectCharacter picks the player's character and starts a ladder run
func (e *Engine) SelectCharacter(id CharacterID) error {
	e.mu.Lock()
	err := e.match.SelectCharacter(id)
	events := e.drainEvents()
	e.produceSnapshot()
	e.mu.Unlock()
	e.dispatch(events)
	return err
}

// StartVersus begins a single match without the ladder
func (e *Engine) StartVersus(player, opponent CharacterID) error {
	e.mu.Lock()
	err := e.match.StartVersus(player, opponent)
	events := e.drainEvents()
	e.produceSnapshot()
	e.mu.Unlock()
	e.dispatch(events)
	return err
}

// GetSnapshot returns the latest published snapshot without locking.
// The pointer is only valid until the producer wraps around.
func (e *Engine) GetSnapshot() *MatchSnapshot {
	return e.snapshotPool.AcquireRead()
}

// Snapshot returns a deep copy of the current state
func (e *Engine) Snapshot() MatchSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.match.Snapshot()
}

// Roster returns the immutable character data
func (e *Engine) Roster() *Roster {
	return e.match.Roster()
}

// TickRate returns the configured ticks per second
func (e *Engine) TickRate() int { return e.tickRate }

// TickCount returns how many ticks have run
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// StartEventLog begins journaling events to a file (empty path: memory only)
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the journal
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns journal counters
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// EventLog exposes the journal for recent-event queries
func (e *Engine) EventLog() *EventLog { return e.eventLog }
