package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// MaxCueLength caps override files so a stray music track is not served as a cue
const MaxCueLength = 5 * time.Second

var (
	ErrUnknownCue = errors.New("unknown sound cue")
	ErrDisabled   = errors.New("audio disabled")
)

// Bank renders cues once and caches the samples and their WAV encoding.
// A file named after the cue (hitHeavy.ogg, block.wav) in the sounds
// directory replaces the synthesized version.
type Bank struct {
	cfg    config.AudioConfig
	format beep.Format

	mu      sync.RWMutex
	buffers map[game.SoundCue]*beep.Buffer
	wavs    map[game.SoundCue][]byte
}

// NewBank creates a bank; nothing is rendered until a cue is requested
func NewBank(cfg config.AudioConfig) *Bank {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = config.DefaultAudio().SampleRate
	}
	return &Bank{
		cfg: cfg,
		format: beep.Format{
			SampleRate:  beep.SampleRate(cfg.SampleRate),
			NumChannels: 2,
			Precision:   2,
		},
		buffers: make(map[game.SoundCue]*beep.Buffer),
		wavs:    make(map[game.SoundCue][]byte),
	}
}

// Format returns the sample format every cue is rendered in
func (b *Bank) Format() beep.Format { return b.format }

// Enabled reports whether cues should be played
func (b *Bank) Enabled() bool { return b.cfg.Enabled }

// Preload renders every cue up front
func (b *Bank) Preload() error {
	for _, cue := range game.SoundCues {
		if _, err := b.Buffer(cue); err != nil {
			return fmt.Errorf("%s: %w", cue, err)
		}
	}
	return nil
}

// Buffer returns the rendered samples for cue
func (b *Bank) Buffer(cue game.SoundCue) (*beep.Buffer, error) {
	b.mu.RLock()
	buf, ok := b.buffers[cue]
	b.mu.RUnlock()
	if ok {
		return buf, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Double-check after acquiring write lock
	if buf, ok := b.buffers[cue]; ok {
		return buf, nil
	}
	buf, err := b.render(cue)
	if err != nil {
		return nil, err
	}
	b.buffers[cue] = buf
	return buf, nil
}

func (b *Bank) render(cue game.SoundCue) (*beep.Buffer, error) {
	if _, ok := cueVoices[cue]; !ok {
		return nil, ErrUnknownCue
	}
	rate := b.format.SampleRate

	var (
		s      beep.Streamer
		length = MaxCueLength
	)
	if b.cfg.SoundsDir != "" {
		override, closer, err := b.loadOverride(cue)
		if err != nil {
			// Fall back to the synthesized cue
			log.Printf("⚠️ Sound override for %s ignored: %v", cue, err)
		}
		if closer != nil {
			defer closer.Close()
		}
		s = override
	}
	if s == nil {
		s, _ = synthesize(cue, rate)
		length = cueLength(cue)
	}

	buf := beep.NewBuffer(b.format)
	buf.Append(beep.Take(rate.N(length), newVolume(s, b.cfg.Volume)))
	return buf, nil
}

// loadOverride opens <dir>/<cue>.ogg or .wav and resamples it to the bank
// rate. A missing file is not an error.
func (b *Bank) loadOverride(cue game.SoundCue) (beep.Streamer, io.Closer, error) {
	for _, ext := range []string{".ogg", ".wav"} {
		path := filepath.Join(b.cfg.SoundsDir, string(cue)+ext)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		var (
			stream beep.StreamSeekCloser
			format beep.Format
		)
		if ext == ".ogg" {
			stream, format, err = vorbis.Decode(f)
		} else {
			stream, format, err = wav.Decode(f)
		}
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("decode %s: %w", path, err)
		}

		if format.SampleRate != b.format.SampleRate {
			return beep.Resample(4, format.SampleRate, b.format.SampleRate, stream), stream, nil
		}
		return stream, stream, nil
	}
	return nil, nil, nil
}

// WAV returns the cue as a 16-bit stereo WAV file
func (b *Bank) WAV(cue game.SoundCue) ([]byte, error) {
	if !b.cfg.Enabled {
		return nil, ErrDisabled
	}

	b.mu.RLock()
	data, ok := b.wavs[cue]
	b.mu.RUnlock()
	if ok {
		return data, nil
	}

	buf, err := b.Buffer(cue)
	if err != nil {
		return nil, err
	}
	var out seekBuffer
	if err := wav.Encode(&out, buf.Streamer(0, buf.Len()), b.format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cue, err)
	}

	b.mu.Lock()
	b.wavs[cue] = out.buf
	b.mu.Unlock()
	return out.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.buf) {
		s.buf = append(s.buf, make([]byte, need-len(s.buf))...)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(s.pos)
	case io.SeekEnd:
		base = int64(len(s.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("seek: negative position")
	}
	s.pos = int(pos)
	return pos, nil
}
