package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"critique-kombat/internal/game"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:7000", true},
		{"[::1]:6060", true},
		{"0.0.0.0:6060", false},
		{":6060", false},
		{"10.1.2.3:6060", false},
		{"no-port", false},
	}
	for _, tt := range tests {
		if got := isLoopback(tt.addr); got != tt.want {
			t.Errorf("isLoopback(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestDebugHandler(t *testing.T) {
	ts := httptest.NewServer(DebugHandler(DefaultObservabilityConfig()))
	defer ts.Close()

	for _, path := range []string{"/health", "/metrics", "/debug/pprof/"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestDebugHandlerBasicAuth(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.BasicAuthUser, cfg.BasicAuthPass = "ops", "secret"
	ts := httptest.NewServer(DebugHandler(cfg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	req.SetBasicAuth("ops", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "kombat_tick_duration_seconds") {
		t.Error("metrics output lacks the tick histogram")
	}
}

func TestInstrumentCountsEvents(t *testing.T) {
	e := newTestEngine(t)
	Instrument(e)

	phases := eventsTotal.WithLabelValues(game.EventTypePhase.String())
	before := testutil.ToFloat64(phases)

	if !e.Confirm() {
		t.Fatal("confirm not queued")
	}
	e.Step()

	if got := testutil.ToFloat64(phases) - before; got != 1 {
		t.Errorf("phase events counted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(matchPhase); got != float64(game.PhaseCharSelect) {
		t.Errorf("phase gauge = %v, want %d", got, game.PhaseCharSelect)
	}
	if testutil.ToFloat64(eventLogTotal) == 0 {
		t.Error("event log gauge not updated")
	}
}
