package watch

import (
	"sync"
	"time"
)

// Debouncer delays a callback per key until no new trigger for that key has
// arrived for the configured quiet period.
type Debouncer struct {
	delay time.Duration
	fire  func(path string)

	mu      sync.Mutex
	pending map[string]*pendingFire
	stopped bool
}

type pendingFire struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a debouncer that calls fire once per quiet period.
func NewDebouncer(delay time.Duration, fire func(path string)) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fire:    fire,
		pending: make(map[string]*pendingFire),
	}
}

// Trigger (re)starts the timer for path.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	p, ok := d.pending[path]
	if !ok {
		p = &pendingFire{}
		d.pending[path] = p
	} else {
		p.timer.Stop()
	}
	// A timer that already fired but has not taken the lock yet sees a newer
	// generation and backs off.
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(d.delay, func() { d.expire(path, gen) })
}

func (d *Debouncer) expire(path string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if d.stopped || !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	d.fire(path)
}

// Pending returns the number of paths waiting for their quiet period.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending timer. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
