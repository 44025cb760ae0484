package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
)

var testVideo = config.VideoConfig{Width: 320, Height: 180}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return img
}

// fightSnapshots runs a versus match into the fight and collects snapshots
func fightSnapshots(t *testing.T, ticks int) []game.MatchSnapshot {
	t.Helper()
	e := game.NewEngine(game.DefaultMatchConfig(), game.MustDefaultRoster(), nil)
	if err := e.StartVersus("khayati", "maoist"); err != nil {
		t.Fatal(err)
	}
	e.Confirm()

	var snaps []game.MatchSnapshot
	for i := 0; i < ticks; i++ {
		e.Step()
		if i%20 == 0 {
			snaps = append(snaps, e.Snapshot())
		}
	}
	return snaps
}

func TestNewRendererRejectsBadSize(t *testing.T) {
	if _, err := NewRenderer(config.VideoConfig{Width: 0, Height: 100}, nil); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestRenderPNGPhases(t *testing.T) {
	r, err := NewRenderer(testVideo, nil)
	if err != nil {
		t.Fatal(err)
	}

	snaps := []game.MatchSnapshot{
		{Phase: game.PhaseTitle},
		{Phase: game.PhaseCharSelect, Roster: []game.CharacterID{"khayati", "bureaucrat", "professor"}, Cursor: 1},
		{Phase: game.PhaseGameOver},
	}
	snaps = append(snaps, fightSnapshots(t, 300)...)

	for _, snap := range snaps {
		var buf bytes.Buffer
		if err := r.RenderPNG(&buf, &snap); err != nil {
			t.Fatalf("%s: %v", snap.Phase, err)
		}
		img := decodePNG(t, buf.Bytes())
		if b := img.Bounds(); b.Dx() != testVideo.Width || b.Dy() != testVideo.Height {
			t.Errorf("%s: frame %v, want %dx%d", snap.Phase, b, testVideo.Width, testVideo.Height)
		}
	}
}

func TestRenderDrawsFlash(t *testing.T) {
	effects := NewEffects()
	r, err := NewRenderer(testVideo, effects)
	if err != nil {
		t.Fatal(err)
	}

	snap := game.MatchSnapshot{Phase: game.PhaseFighting, TickNumber: 1}
	before := image.NewRGBA(image.Rect(0, 0, testVideo.Width, testVideo.Height))
	copy(before.Pix, r.Draw(&snap).(*image.RGBA).Pix)

	effects.Observe(hitEvent(10, false))
	snap.TickNumber = 2
	after := r.Draw(&snap).(*image.RGBA)

	// Hit point (1200, 150) in world units
	x, y := r.screen(1200, 150)
	if before.RGBAAt(int(x), int(y)) == after.RGBAAt(int(x), int(y)) {
		t.Error("flash did not change the pixel at the hit point")
	}
}

func TestScreenMapping(t *testing.T) {
	r, err := NewRenderer(testVideo, nil)
	if err != nil {
		t.Fatal(err)
	}
	x, y := r.screen(WorldWidth, 0)
	if x != float64(testVideo.Width) || y != r.groundY {
		t.Errorf("screen(right, floor) = (%v,%v)", x, y)
	}
	_, top := r.screen(0, 100)
	if top >= r.groundY {
		t.Error("world y should grow upward on screen")
	}
}

func TestBlender(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	b := NewBlender(img)
	red := color.RGBA{255, 0, 0, 255}

	b.FillRect(-5, -5, 10, 10, red)
	if img.RGBAAt(0, 0) != red || img.RGBAAt(4, 4) != red {
		t.Error("clipped rect not filled")
	}
	if img.RGBAAt(5, 5) == red {
		t.Error("rect overflowed")
	}

	b.FillRect(10, 10, 1, 1, withAlpha(color.RGBA{0, 0, 255, 255}, 0.5))
	if got := img.RGBAAt(10, 10); got.B < 120 || got.B > 135 || got.A != 255 {
		t.Errorf("half-alpha blend = %v", got)
	}

	b.Ring(10, 10, 6, 2, red)
	if img.RGBAAt(16, 10) != red {
		t.Error("ring missing its outline")
	}
	if img.RGBAAt(12, 10) == red {
		t.Error("ring filled its interior")
	}

	b.FillCircle(100, 100, 5, red) // fully off-image
	b.HLine(25, -3, 19, red)
	if img.RGBAAt(0, 19) != red || img.RGBAAt(19, 19) != red {
		t.Error("hline not clipped to the row")
	}
}

func TestPoolConcurrentRenders(t *testing.T) {
	p, err := NewPool(testVideo, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	p.Start()

	snaps := fightSnapshots(t, 200)
	var wg sync.WaitGroup
	errs := make(chan error, len(snaps)*2)
	for i := 0; i < 2; i++ {
		for j := range snaps {
			wg.Add(1)
			go func(snap *game.MatchSnapshot) {
				defer wg.Done()
				var buf bytes.Buffer
				if err := p.RenderPNG(&buf, snap); err != nil {
					errs <- err
					return
				}
				if _, err := png.Decode(&buf); err != nil {
					errs <- err
				}
			}(&snaps[j])
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("pool still running")
	}
	if err := p.RenderPNG(&bytes.Buffer{}, &snaps[0]); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("render after stop = %v, want ErrPoolStopped", err)
	}
}

func TestNewPoolWorkerBounds(t *testing.T) {
	p, err := NewPool(testVideo, nil, 64)
	if err != nil {
		t.Fatal(err)
	}
	if p.NumWorkers() != 16 {
		t.Errorf("workers = %d, want 16", p.NumWorkers())
	}
}
