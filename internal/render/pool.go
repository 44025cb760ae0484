package render

import (
	"errors"
	"io"
	"runtime"
	"sync"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"
)

// ErrPoolStopped is returned when rendering through a stopped pool
var ErrPoolStopped = errors.New("render pool stopped")

// Pool renders frames on a fixed set of workers, each owning a Renderer.
// All workers share one Effects tracker.
type Pool struct {
	numWorkers int
	renderers  []*Renderer
	effects    *Effects
	jobChan    chan renderJob
	wg         sync.WaitGroup
	running    bool
	mu         sync.RWMutex
}

// renderJob is one frame request
type renderJob struct {
	snap   *game.MatchSnapshot
	w      io.Writer
	result chan<- error
}

// NewPool creates a pool with numWorkers renderers.
// If numWorkers is 0, it defaults to NumCPU, capped at 16.
func NewPool(cfg config.VideoConfig, effects *Effects, numWorkers int) (*Pool, error) {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > 16 {
		numWorkers = 16
	}
	if effects == nil {
		effects = NewEffects()
	}

	p := &Pool{
		numWorkers: numWorkers,
		renderers:  make([]*Renderer, numWorkers),
		effects:    effects,
		jobChan:    make(chan renderJob, numWorkers*2),
	}
	for i := range p.renderers {
		r, err := NewRenderer(cfg, effects)
		if err != nil {
			return nil, err
		}
		p.renderers[i] = r
	}
	return p, nil
}

// Effects returns the tracker shared by the pool's renderers
func (p *Pool) Effects() *Effects { return p.effects }

// Start begins the workers
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.wg.Add(p.numWorkers)
	for _, r := range p.renderers {
		go p.worker(r)
	}
}

// Stop drains queued frames and stops the workers. A stopped pool cannot
// be restarted.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.jobChan)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(r *Renderer) {
	defer p.wg.Done()
	for job := range p.jobChan {
		job.result <- r.RenderPNG(job.w, job.snap)
	}
}

// RenderPNG queues snap on a free worker and waits for the encoded frame.
// snap must stay unchanged until RenderPNG returns.
func (p *Pool) RenderPNG(w io.Writer, snap *game.MatchSnapshot) error {
	result := make(chan error, 1)

	// The read lock keeps Stop from closing the channel mid-send
	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return ErrPoolStopped
	}
	p.jobChan <- renderJob{snap: snap, w: w, result: result}
	p.mu.RUnlock()

	return <-result
}

// NumWorkers returns the number of workers in the pool
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// IsRunning returns whether the pool is currently running
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}
