package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"critique-kombat/internal/game"

	"github.com/go-chi/chi/v5"
)

// DefaultEventLimit is how many events /api/events returns without ?limit
const DefaultEventLimit = 32

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, &snap)
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, game.RecentEventCount)
	}
	writeJSON(w, h.engine.EventLog().Recent(limit))
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "frame rendering disabled", http.StatusServiceUnavailable)
		return
	}
	snap := h.engine.Snapshot()

	var buf bytes.Buffer
	start := time.Now()
	err := h.renderer.RenderPNG(&buf, &snap)
	RecordRender(time.Since(start))
	if err != nil {
		log.Printf("❌ Frame render failed: %v", err)
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// characterSummary is the roster entry without frame data
type characterSummary struct {
	ID        game.CharacterID `json:"id"`
	Name      string           `json:"name"`
	Archetype string           `json:"archetype"`
	MeterName string           `json:"meterName"`
	Stats     game.Stats       `json:"stats"`
	Styles    []game.Style     `json:"styles"`
	Fatality  string           `json:"fatality"`
	Boss      bool             `json:"boss"`
}

func (h *routerHandlers) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	roster := h.engine.Roster()
	out := make([]characterSummary, 0, len(roster.IDs()))
	for _, id := range roster.IDs() {
		c, _ := roster.Get(id)
		out = append(out, characterSummary{
			ID:        c.ID,
			Name:      c.Name,
			Archetype: c.Archetype,
			MeterName: c.MeterName,
			Stats:     c.Stats,
			Styles:    c.Styles,
			Fatality:  c.Fatality,
			Boss:      c.Boss,
		})
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleGetMoves(w http.ResponseWriter, r *http.Request) {
	roster := h.engine.Roster()
	c, ok := roster.Get(game.CharacterID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, game.ErrUnknownCharacter.Error(), http.StatusNotFound)
		return
	}

	// Resolved frame data, so characters without an override show the defaults
	moves := make(map[game.Action]*game.MoveDefinition)
	for a := game.ActionAttackLP; a <= game.ActionSpecial4; a++ {
		moves[a] = roster.Move(c, a)
	}
	writeJSON(w, map[string]interface{}{
		"id":    c.ID,
		"name":  c.Name,
		"moves": moves,
	})
}

func (h *routerHandlers) handleGetBindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.controls.KeysFor())
}

// inputRequest is a button edge. Action is "press", "release" or "tap" (default).
type inputRequest struct {
	Button string `json:"button"`
	Action string `json:"action"`
}

func (h *routerHandlers) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	queued, err := applyInput(h.engine, req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !queued {
		writeError(w, "input queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// applyInput queues one input request; shared with the WebSocket reader
func applyInput(engine EngineInterface, req inputRequest) (bool, error) {
	b, err := game.ParseButton(req.Button)
	if err != nil {
		return false, err
	}
	switch req.Action {
	case "press":
		return engine.Press(b), nil
	case "release":
		return engine.Release(b), nil
	case "", "tap":
		return engine.Tap(b), nil
	default:
		return false, errors.New("action must be press, release or tap")
	}
}

func (h *routerHandlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Tap(game.ButtonConfirm) {
		writeError(w, "input queue full", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Character string `json:"character"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.SelectCharacter(game.CharacterID(req.Character)); err != nil {
		writeGameError(w, err)
		return
	}
	log.Printf("🕹️ Ladder started with %s", req.Character)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleVersus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player   string `json:"player"`
		Opponent string `json:"opponent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	err := h.engine.StartVersus(game.CharacterID(req.Player), game.CharacterID(req.Opponent))
	if err != nil {
		writeGameError(w, err)
		return
	}
	log.Printf("🕹️ Versus %s vs %s", req.Player, req.Opponent)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetSound(w http.ResponseWriter, r *http.Request) {
	if h.sounds == nil {
		writeError(w, "audio disabled", http.StatusServiceUnavailable)
		return
	}
	cue := game.SoundCue(chi.URLParam(r, "cue"))
	if !knownCue(cue) {
		writeError(w, "unknown sound cue", http.StatusNotFound)
		return
	}
	data, err := h.sounds.WAV(cue)
	if err != nil {
		log.Printf("❌ Sound %s failed: %v", cue, err)
		writeError(w, "synthesis failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func knownCue(cue game.SoundCue) bool {
	for _, c := range game.SoundCues {
		if c == cue {
			return true
		}
	}
	return false
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeGameError maps simulation errors to HTTP status codes
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownCharacter):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrCharacterLocked):
		writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, game.ErrWrongPhase):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
