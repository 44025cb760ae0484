package tui

import (
	"context"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/gdamore/tcell/v2"
)

// FrameInterval is the redraw period
const FrameInterval = time.Second / 30

// SnapshotSource is the part of the engine the app reads from
type SnapshotSource interface {
	ButtonTarget
	Snapshot() game.MatchSnapshot
}

// App runs the draw loop and key handling for one screen
type App struct {
	screen tcell.Screen
	source SnapshotSource
	view   *View
	input  *InputAdapter
}

// NewApp wires a screen to an engine with the given key bindings
func NewApp(screen tcell.Screen, source SnapshotSource, controls config.Controls) *App {
	return &App{
		screen: screen,
		source: source,
		view:   NewView(screen),
		input:  NewInputAdapter(controls, source, DefaultHoldTime),
	}
}

// Input returns the key adapter
func (a *App) Input() *InputAdapter { return a.input }

// isQuit reports whether a key ends the session. Escape and Ctrl-C are
// never bindable.
func isQuit(ev *tcell.EventKey) bool {
	return ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC
}

// Run draws until ctx is done or the user quits. The screen must already be
// initialized; Run does not finalize it.
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				// Screen finalized
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	defer close(quit)
	defer a.input.ReleaseAll()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if isQuit(ev) {
					return nil
				}
				a.input.HandleKey(KeyName(ev), time.Now())
			case *tcell.EventResize:
				a.screen.Sync()
			}
		case now := <-ticker.C:
			a.input.Expire(now)
			a.Render()
		}
	}
}

// Render draws the latest snapshot and shows it
func (a *App) Render() {
	// A locked deep copy; the published buffer can be reused mid-draw
	snap := a.source.Snapshot()
	a.view.Draw(&snap)
	a.screen.Show()
}
