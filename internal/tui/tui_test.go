package tui

import (
	"strings"
	"testing"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/gdamore/tcell/v2"
)

// recorder is a ButtonTarget that logs calls
type recorder struct {
	calls []string
}

func (r *recorder) record(verb string, b game.Button) bool {
	r.calls = append(r.calls, verb+" "+b.String())
	return true
}

func (r *recorder) Press(b game.Button) bool   { return r.record("press", b) }
func (r *recorder) Release(b game.Button) bool { return r.record("release", b) }
func (r *recorder) Tap(b game.Button) bool     { return r.record("tap", b) }

func TestInputAdapterHoldAndExpire(t *testing.T) {
	rec := &recorder{}
	a := NewInputAdapter(config.DefaultControls(), rec, 100*time.Millisecond)
	t0 := time.Unix(0, 0)

	if !a.HandleKey("Left", t0) {
		t.Fatal("Left not bound")
	}
	// Auto-repeat keeps the button down without another press
	a.HandleKey("Left", t0.Add(80*time.Millisecond))
	a.Expire(t0.Add(150 * time.Millisecond))
	if !a.Held(game.ButtonLeft) {
		t.Fatal("repeat did not extend the hold")
	}
	a.Expire(t0.Add(200 * time.Millisecond))
	if a.Held(game.ButtonLeft) {
		t.Fatal("button still held after repeats stopped")
	}

	want := []string{"press LEFT", "release LEFT"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
}

func TestInputAdapterTapsAndFallbacks(t *testing.T) {
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"u", "tap LP", true},
		{"U", "tap LP", true}, // caps lock
		{"Enter", "tap CONFIRM", true},
		{"o", "tap PARRY", true},
		{"l", "press BLOCK", true},
		{"x", "", false},
	}
	for _, tt := range tests {
		rec := &recorder{}
		a := NewInputAdapter(config.DefaultControls(), rec, 0)
		if ok := a.HandleKey(tt.key, time.Now()); ok != tt.ok {
			t.Errorf("HandleKey(%q) = %v, want %v", tt.key, ok, tt.ok)
		}
		got := strings.Join(rec.calls, ",")
		if got != tt.want {
			t.Errorf("HandleKey(%q) calls = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestInputAdapterReleaseAll(t *testing.T) {
	rec := &recorder{}
	a := NewInputAdapter(config.DefaultControls(), rec, time.Hour)
	now := time.Now()
	a.HandleKey("a", now)
	a.HandleKey("s", now)
	a.ReleaseAll()
	if a.Held(game.ButtonLeft) || a.Held(game.ButtonDown) {
		t.Error("buttons still held")
	}
	if len(rec.calls) != 4 {
		t.Errorf("calls = %v", rec.calls)
	}
}

func TestInputDrivesEngine(t *testing.T) {
	e := game.NewEngine(game.DefaultMatchConfig(), game.MustDefaultRoster(), nil)
	a := NewInputAdapter(config.DefaultControls(), e, 0)

	a.HandleKey("Enter", time.Now())
	e.Step()
	if got := e.Snapshot().Phase; got != game.PhaseCharSelect {
		t.Errorf("phase = %v, want CHAR_SELECT", got)
	}
}

func newScreen(t *testing.T, w, h int) tcell.Screen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func screenText(s tcell.Screen) string {
	w, h := s.Size()
	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, _, _, _ := s.GetContent(x, y)
			sb.WriteRune(r)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestViewPhases(t *testing.T) {
	s := newScreen(t, 100, 30)
	v := NewView(s)

	v.Draw(&game.MatchSnapshot{Phase: game.PhaseTitle})
	if !strings.Contains(screenText(s), "C R I T I Q U E") {
		t.Error("title screen missing name")
	}

	v.Draw(&game.MatchSnapshot{
		Phase:  game.PhaseCharSelect,
		Roster: []game.CharacterID{"khayati", "bureaucrat"},
		Cursor: 1,
	})
	text := screenText(s)
	if !strings.Contains(text, "KHAYATI") || !strings.Contains(text, "BUREAUCRAT") {
		t.Error("roster not listed")
	}
	if !strings.Contains(text, "locked") {
		t.Error("locked boss hint missing")
	}
}

func TestViewArena(t *testing.T) {
	s := newScreen(t, 120, 40)
	v := NewView(s)

	e := game.NewEngine(game.DefaultMatchConfig(), game.MustDefaultRoster(), nil)
	if err := e.StartVersus("khayati", "maoist"); err != nil {
		t.Fatal(err)
	}
	e.Confirm()
	for i := 0; i < 10; i++ {
		e.Step()
	}
	snap := e.Snapshot()
	snap.Message = "ROUND 1"
	v.Draw(&snap)

	text := screenText(s)
	for _, want := range []string{"ROUND 1", "█", "▀", strings.ToUpper(snap.Player.Name)} {
		if !strings.Contains(text, want) {
			t.Errorf("arena missing %q", want)
		}
	}
}

func TestCellMapping(t *testing.T) {
	x, y := cell(0, 0, 120, 38)
	if x != 0 || y != 37 {
		t.Errorf("origin -> (%d,%d), want (0,37)", x, y)
	}
	x, _ = cell(worldWidth/2, 0, 120, 38)
	if x != 60 {
		t.Errorf("center x = %d, want 60", x)
	}
	_, y = cell(0, 400, 120, 38)
	if y >= 37 {
		t.Error("higher world y should be a higher row")
	}
}

// fixedSource serves one snapshot and counts reads
type fixedSource struct {
	recorder
	snap  game.MatchSnapshot
	reads int
}

func (f *fixedSource) Snapshot() game.MatchSnapshot {
	f.reads++
	return f.snap
}

func TestAppRenderReadsSnapshotCopy(t *testing.T) {
	s := newScreen(t, 100, 30)
	src := &fixedSource{snap: game.MatchSnapshot{
		Phase:  game.PhaseCharSelect,
		Roster: []game.CharacterID{"khayati"},
	}}
	app := NewApp(s, src, config.DefaultControls())
	app.Render()
	if src.reads != 1 {
		t.Errorf("snapshot reads = %d, want 1", src.reads)
	}
	if !strings.Contains(screenText(s), "KHAYATI") {
		t.Error("app did not draw the source snapshot")
	}
}

func TestAppRender(t *testing.T) {
	s := newScreen(t, 80, 24)
	e := game.NewEngine(game.DefaultMatchConfig(), game.MustDefaultRoster(), nil)
	app := NewApp(s, e, config.DefaultControls())
	app.Render()
	if !strings.Contains(screenText(s), "press confirm") {
		t.Error("app did not draw the title")
	}
}
