package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
)

// testRateLimit is high enough that no test trips it by accident
var testRateLimit = &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, CleanupInterval: time.Minute}

type fakeRenderer struct{ calls int }

func (f *fakeRenderer) RenderPNG(w io.Writer, snap *game.MatchSnapshot) error {
	f.calls++
	_, err := w.Write([]byte("\x89PNG"))
	return err
}

type fakeSounds struct{ fail bool }

func (f fakeSounds) WAV(cue game.SoundCue) ([]byte, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	return []byte("RIFF" + string(cue)), nil
}

func newTestEngine(t *testing.T) *game.Engine {
	t.Helper()
	e := game.NewEngine(game.DefaultMatchConfig(), game.MustDefaultRoster(), nil)
	if err := e.StartEventLog(""); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.StopEventLog)
	return e
}

func newTestServer(t *testing.T, cfg RouterConfig) (*httptest.Server, *game.Engine) {
	t.Helper()
	e := newTestEngine(t)
	cfg.Engine = e
	cfg.DisableLogging = true
	if cfg.RateLimitConfig == nil {
		cfg.RateLimitConfig = testRateLimit
	}
	ts := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts, e
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestGetState(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{})

	resp := get(t, ts.URL+"/api/state")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var state struct {
		Phase string `json:"phase"`
		Timer int    `json:"timer"`
	}
	decode(t, resp, &state)
	if state.Phase != "TITLE" {
		t.Errorf("phase = %q, want TITLE", state.Phase)
	}
}

func TestGetRoster(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{})

	var roster []characterSummary
	decode(t, get(t, ts.URL+"/api/roster"), &roster)
	if len(roster) != 5 {
		t.Fatalf("roster size = %d, want 5", len(roster))
	}
	bosses := 0
	for _, c := range roster {
		if c.Boss {
			bosses++
			if c.ID != "debord" {
				t.Errorf("unexpected boss %s", c.ID)
			}
		}
	}
	if bosses != 1 {
		t.Errorf("bosses = %d, want 1", bosses)
	}
}

func TestGetMoves(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{})

	var body struct {
		Moves map[string]struct {
			Startup int     `json:"startup"`
			Damage  float64 `json:"damage"`
		} `json:"moves"`
	}
	decode(t, get(t, ts.URL+"/api/moves/khayati"), &body)
	if len(body.Moves) != 12 {
		t.Errorf("moves = %d, want 12", len(body.Moves))
	}
	if m, ok := body.Moves["SPECIAL_1"]; !ok || m.Startup <= 0 {
		t.Errorf("SPECIAL_1 = %+v", m)
	}

	if resp := get(t, ts.URL+"/api/moves/nobody"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown character status = %d, want 404", resp.StatusCode)
	}
}

func TestSelectCharacter(t *testing.T) {
	ts, e := newTestServer(t, RouterConfig{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{`, http.StatusBadRequest},
		{"unknown", `{"character":"nobody"}`, http.StatusNotFound},
		{"locked boss", `{"character":"debord"}`, http.StatusForbidden},
		{"valid", `{"character":"khayati"}`, http.StatusOK},
		{"wrong phase", `{"character":"khayati"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(t, ts.URL+"/api/select", tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	snap := e.Snapshot()
	if snap.Player == nil || snap.Player.Character != "khayati" {
		t.Fatalf("player = %+v", snap.Player)
	}
	if snap.Ladder.Order[len(snap.Ladder.Order)-1] != "debord" {
		t.Errorf("ladder = %v, want boss last", snap.Ladder.Order)
	}
}

func TestVersus(t *testing.T) {
	ts, e := newTestServer(t, RouterConfig{})

	if resp := post(t, ts.URL+"/api/versus", `{"player":"maoist","opponent":"nobody"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/versus", `{"player":"debord","opponent":"professor"}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("locked boss status = %d, want 403", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/api/versus", `{"player":"maoist","opponent":"professor"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	snap := e.Snapshot()
	if snap.Enemy == nil || snap.Enemy.Character != "professor" {
		t.Errorf("enemy = %+v", snap.Enemy)
	}
	if resp := post(t, ts.URL+"/api/versus", `{"player":"khayati","opponent":"bureaucrat"}`); resp.StatusCode != http.StatusConflict {
		t.Errorf("mid-match status = %d, want 409", resp.StatusCode)
	}
}

func TestInput(t *testing.T) {
	ts, e := newTestServer(t, RouterConfig{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"tap", `{"button":"lp"}`, http.StatusOK},
		{"press", `{"button":"LEFT","action":"press"}`, http.StatusOK},
		{"release", `{"button":"LEFT","action":"release"}`, http.StatusOK},
		{"unknown button", `{"button":"TURBO"}`, http.StatusBadRequest},
		{"unknown action", `{"button":"LP","action":"mash"}`, http.StatusBadRequest},
		{"malformed", `nope`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(t, ts.URL+"/api/input", tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	// A full queue is reported rather than silently dropped
	for e.Press(game.ButtonUp) {
	}
	if resp := post(t, ts.URL+"/api/input", `{"button":"UP"}`); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("full queue status = %d, want 503", resp.StatusCode)
	}
}

func TestConfirmAdvancesTitle(t *testing.T) {
	ts, e := newTestServer(t, RouterConfig{})

	if resp := post(t, ts.URL+"/api/confirm", ``); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	e.Step()
	if got := e.Snapshot().Phase; got != game.PhaseCharSelect {
		t.Errorf("phase = %s, want CHAR_SELECT", got)
	}
}

func TestGetEvents(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{})

	post(t, ts.URL+"/api/versus", `{"player":"khayati","opponent":"bureaucrat"}`)

	var events []struct {
		Sequence uint64 `json:"sequence"`
		Type     string `json:"type"`
	}
	decode(t, get(t, ts.URL+"/api/events"), &events)
	if len(events) == 0 {
		t.Fatal("no events after starting a match")
	}
	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Fatalf("events out of order: %d then %d", events[i-1].Sequence, events[i].Sequence)
		}
	}

	decode(t, get(t, ts.URL+"/api/events?limit=1"), &events)
	if len(events) != 1 {
		t.Errorf("limit=1 returned %d events", len(events))
	}
	if resp := get(t, ts.URL+"/api/events?limit=-3"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetBindings(t *testing.T) {
	controls, err := config.ParseControls([]byte("[bindings]\nz = LP\n"))
	if err != nil {
		t.Fatal(err)
	}
	ts, _ := newTestServer(t, RouterConfig{Controls: controls})

	var keys map[string][]string
	decode(t, get(t, ts.URL+"/api/bindings"), &keys)
	if got := strings.Join(keys["LP"], ","); got != "u,z" {
		t.Errorf("LP keys = %q, want u,z", got)
	}
}

func TestFrameAndSounds(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts, _ := newTestServer(t, RouterConfig{})
		if resp := get(t, ts.URL+"/api/frame.png"); resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("frame status = %d, want 503", resp.StatusCode)
		}
		if resp := get(t, ts.URL+"/api/sounds/block.wav"); resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("sound status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		r := &fakeRenderer{}
		ts, _ := newTestServer(t, RouterConfig{Renderer: r, Sounds: fakeSounds{}})

		resp := get(t, ts.URL+"/api/frame.png")
		if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("content type = %q", ct)
		}
		if r.calls != 1 {
			t.Errorf("renderer calls = %d", r.calls)
		}

		resp = get(t, ts.URL+"/api/sounds/hitHeavy.wav")
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || !bytes.Equal(body, []byte("RIFFhitHeavy")) {
			t.Errorf("sound = %d %q", resp.StatusCode, body)
		}
		if resp := get(t, ts.URL+"/api/sounds/airhorn.wav"); resp.StatusCode != http.StatusNotFound {
			t.Errorf("unknown cue status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("synthesis error", func(t *testing.T) {
		ts, _ := newTestServer(t, RouterConfig{Sounds: fakeSounds{fail: true}})
		if resp := get(t, ts.URL+"/api/sounds/parry.wav"); resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", resp.StatusCode)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, CleanupInterval: time.Minute},
	})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = get(t, ts.URL+"/health").StatusCode
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestRateLimitClasses(t *testing.T) {
	ts, _ := newTestServer(t, RouterConfig{
		Renderer: &fakeRenderer{},
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 0.001, Burst: 1,
			InputPerSecond: 0.001, InputBurst: 3,
			FramePerSecond: 0.001, FrameBurst: 1,
			CleanupInterval: time.Minute,
		},
	})

	// Reads are exhausted first; button edges still get through
	if code := get(t, ts.URL+"/health").StatusCode; code != http.StatusOK {
		t.Fatalf("first read = %d", code)
	}
	if code := get(t, ts.URL+"/api/state").StatusCode; code != http.StatusTooManyRequests {
		t.Errorf("second read = %d, want 429", code)
	}
	for i := 0; i < 3; i++ {
		if code := post(t, ts.URL+"/api/confirm", ``).StatusCode; code != http.StatusOK {
			t.Fatalf("input %d = %d", i, code)
		}
	}
	if code := post(t, ts.URL+"/api/confirm", ``).StatusCode; code != http.StatusTooManyRequests {
		t.Errorf("input past burst = %d, want 429", code)
	}
	if code := get(t, ts.URL+"/api/frame.png").StatusCode; code != http.StatusOK {
		t.Errorf("first frame = %d", code)
	}
	if code := get(t, ts.URL+"/api/frame.png").StatusCode; code != http.StatusTooManyRequests {
		t.Errorf("second frame = %d, want 429", code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		method, path string
		want         trafficClass
	}{
		{http.MethodGet, "/api/state", classRead},
		{http.MethodGet, "/health", classRead},
		{http.MethodPost, "/api/input", classInput},
		{http.MethodPost, "/api/versus", classInput},
		{http.MethodGet, "/api/frame.png", classFrame},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.path, nil)
		if got := classify(r); got != tt.want {
			t.Errorf("classify(%s %s) = %s, want %s", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestCommandLimiter(t *testing.T) {
	lim := NewCommandLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, InputPerSecond: 0.001, InputBurst: 2})
	if !lim.Allow() || !lim.Allow() {
		t.Fatal("burst of two commands rejected")
	}
	if lim.Allow() {
		t.Error("third command allowed")
	}

	// Without input limits the read limits apply
	fallback := NewCommandLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	if !fallback.Allow() || fallback.Allow() {
		t.Error("fallback bucket should hold exactly one command")
	}
}
