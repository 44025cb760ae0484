// Package audio synthesizes the sound cues the match emits.
package audio

import (
	"math"
	"math/rand"
	"time"

	"critique-kombat/internal/game"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// oscillator generates a fixed-length raw wave
type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
	rng      *rand.Rand
}

// NewOscillator creates an oscillator. Noise is seeded so a cue renders to
// the same samples every time.
func NewOscillator(freq float64, duration time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	return &oscillator{
		freq:     freq,
		duration: rate.N(duration),
		wave:     wave,
		rate:     rate,
		rng:      rand.New(rand.NewSource(int64(freq) + 1)),
	}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		case WaveSaw:
			val = 2.0 * (o.phase - 0.5)
		case WaveNoise:
			val = o.rng.Float64()*2 - 1
		}

		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release to a stream
type envelope struct {
	streamer       beep.Streamer
	position       int
	attackSamples  int
	releaseSamples int
	totalSamples   int
}

// NewEnvelope shapes s over duration
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer:       s,
		attackSamples:  rate.N(attack),
		releaseSamples: rate.N(release),
		totalSamples:   rate.N(duration),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	releaseStart := e.totalSamples - e.releaseSamples
	for i := 0; i < n; i++ {
		if e.position >= e.totalSamples {
			return i, i > 0
		}

		vol := 1.0
		if e.position < e.attackSamples {
			vol = float64(e.position) / float64(e.attackSamples)
		}
		if e.position >= releaseStart && e.releaseSamples > 0 {
			vol = max(0, float64(e.totalSamples-e.position)/float64(e.releaseSamples))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// newVolume scales linearly; effects.Volume works in log2 steps so zero
// has to be the explicit silent flag
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// tone is one note of a cue
type tone struct {
	freq float64
	dur  time.Duration
	wave WaveType
}

// voice is a sequence of tones at a relative gain; a cue mixes its voices
type voice struct {
	gain  float64
	tones []tone
}

const attack = 5 * time.Millisecond

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

var cueVoices = map[game.SoundCue][]voice{
	game.SoundRoundStart: {
		{0.6, []tone{{440, ms(150), WaveSquare}, {660, ms(250), WaveSquare}}},
	},
	game.SoundHitLight: {
		{0.5, []tone{{0, ms(60), WaveNoise}}},
		{0.6, []tone{{180, ms(70), WaveSine}}},
	},
	game.SoundHitHeavy: {
		{0.7, []tone{{0, ms(120), WaveNoise}}},
		{0.7, []tone{{90, ms(160), WaveSaw}}},
	},
	game.SoundBlock: {
		{0.5, []tone{{300, ms(50), WaveSquare}}},
	},
	game.SoundParry: {
		{0.6, []tone{{1320, ms(250), WaveSine}}},
		{0.3, []tone{{1980, ms(180), WaveSine}}},
	},
	game.SoundCombo: {
		{0.5, []tone{{660, ms(70), WaveSine}, {880, ms(70), WaveSine}, {1100, ms(90), WaveSine}}},
	},
	game.SoundSpectacle: {
		{0.5, []tone{{220, ms(100), WaveSaw}, {330, ms(100), WaveSaw}, {440, ms(160), WaveSaw}}},
	},
	game.SoundFinishHim: {
		{0.6, []tone{{110, ms(600), WaveSaw}}},
		{0.4, []tone{{55, ms(600), WaveSquare}}},
	},
	game.SoundProjectile: {
		{0.5, []tone{{0, ms(200), WaveNoise}}},
		{0.3, []tone{{520, ms(120), WaveSine}}},
	},
	game.SoundMenuMove: {
		{0.4, []tone{{990, ms(30), WaveSquare}}},
	},
	game.SoundFatalityBegin: {
		{0.7, []tone{{55, ms(800), WaveSine}}},
		{0.3, []tone{{0, ms(400), WaveNoise}}},
	},
	game.SoundFatalityEnd: {
		{0.6, []tone{{220, ms(200), WaveSaw}, {165, ms(200), WaveSaw}, {110, ms(400), WaveSaw}}},
	},
}

// synthesize builds the streamer for a cue at unity master volume
func synthesize(cue game.SoundCue, rate beep.SampleRate) (beep.Streamer, bool) {
	voices, ok := cueVoices[cue]
	if !ok {
		return nil, false
	}
	layers := make([]beep.Streamer, 0, len(voices))
	for _, v := range voices {
		seq := make([]beep.Streamer, 0, len(v.tones))
		for _, t := range v.tones {
			osc := NewOscillator(t.freq, t.dur, t.wave, rate)
			seq = append(seq, NewEnvelope(osc, t.dur, attack, t.dur*2/5, rate))
		}
		layers = append(layers, newVolume(beep.Seq(seq...), v.gain))
	}
	return beep.Mix(layers...), true
}

// cueLength is the longest voice of a cue
func cueLength(cue game.SoundCue) time.Duration {
	var longest time.Duration
	for _, v := range cueVoices[cue] {
		var d time.Duration
		for _, t := range v.tones {
			d += t.dur
		}
		longest = max(longest, d)
	}
	return longest
}
