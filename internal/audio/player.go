package audio

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"critique-kombat/internal/game"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// MaxVoices caps simultaneously playing cues; older ones are cut
const MaxVoices = 8

// Player plays cues on the local sound device
type Player struct {
	bank *Bank

	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewPlayer creates a player over bank. Call Initialize before playing.
func NewPlayer(bank *Bank) *Player {
	return &Player{bank: bank, mixer: &beep.Mixer{}}
}

// Initialize opens the sound device. It is a no-op when audio is disabled.
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized || !p.bank.Enabled() {
		return nil
	}
	rate := p.bank.Format().SampleRate
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Play starts cue; unknown cues and an uninitialized player are ignored
func (p *Player) Play(cue game.SoundCue) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	buf, err := p.bank.Buffer(cue)
	if err != nil {
		log.Printf("⚠️ Sound %s: %v", cue, err)
		return
	}

	speaker.Lock()
	if p.mixer.Len() >= MaxVoices {
		p.mixer.Clear()
	}
	p.mixer.Add(buf.Streamer(0, buf.Len()))
	speaker.Unlock()
}

// Sink returns an event sink that plays sound events
func (p *Player) Sink() game.EventSink {
	return func(ev game.Event) {
		if ev.Type != game.EventTypeSound {
			return
		}
		var payload game.SoundPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
		p.Play(payload.Cue)
	}
}

// Close stops playback and releases the device
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Lock()
	p.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	p.initialized = false
}
