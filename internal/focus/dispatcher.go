package focus

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// DebounceWindow is how long a set must stay untouched before its pending
// patch is sent.
const DebounceWindow = 250 * time.Millisecond

// Patcher sends partial set updates to the backend.
type Patcher interface {
	PatchSet(ctx context.Context, setID string, patch models.SetPatch) error
}

// Dispatcher debounces set patches per set id. Patches for the same id that
// arrive within the window are merged field by field into one call. A failed
// call flips the Availability to Offline; nothing is retried.
type Dispatcher struct {
	patcher Patcher
	avail   *Availability
	log     *slog.Logger
	window  time.Duration

	mu      sync.Mutex
	pending map[string]*pendingPatch
	held    map[string]models.SetPatch // keyed by temporary id
	stopped bool
	sending sync.WaitGroup
}

type pendingPatch struct {
	timer *time.Timer
	patch models.SetPatch
}

func NewDispatcher(p Patcher, avail *Availability, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		patcher: p,
		avail:   avail,
		log:     log,
		window:  DebounceWindow,
		pending: make(map[string]*pendingPatch),
		held:    make(map[string]models.SetPatch),
	}
}

// Schedule queues patch for id, restarting the id's debounce timer. Patches
// for a temporary id are held until Resolve or Drop.
func (d *Dispatcher) Schedule(id SetID, patch models.SetPatch) {
	if patch.Empty() || id.IsZero() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if id.Temporary() {
		d.held[id.String()] = d.held[id.String()].Merge(patch)
		return
	}
	d.scheduleLocked(id.String(), patch)
}

// Resolve re-keys patches held for temp under durable and schedules them.
func (d *Dispatcher) Resolve(temp, durable SetID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	patch, ok := d.held[temp.String()]
	delete(d.held, temp.String())
	if !ok || d.stopped {
		return
	}
	d.scheduleLocked(durable.String(), patch)
}

// Drop discards patches held for a temporary id.
func (d *Dispatcher) Drop(temp SetID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.held, temp.String())
}

// Pending reports how many set ids have a timer running.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) scheduleLocked(key string, patch models.SetPatch) {
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		patch = prev.patch.Merge(patch)
	}
	p := &pendingPatch{patch: patch}
	p.timer = time.AfterFunc(d.window, func() { d.fire(key, p) })
	d.pending[key] = p
}

func (d *Dispatcher) fire(key string, p *pendingPatch) {
	d.mu.Lock()
	// A replaced or flushed entry is no longer ours to send.
	if d.stopped || d.pending[key] != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.sending.Add(1)
	d.mu.Unlock()

	defer d.sending.Done()
	d.send(key, p.patch)
}

// Flush sends every pending patch now, in set id order, and returns when
// the calls have completed.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	batch := make(map[string]models.SetPatch, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		batch[key] = p.patch
		delete(d.pending, key)
	}
	d.sending.Add(1)
	d.mu.Unlock()

	defer d.sending.Done()
	for _, key := range slices.Sorted(maps.Keys(batch)) {
		d.send(key, batch[key])
	}
}

func (d *Dispatcher) send(key string, patch models.SetPatch) {
	if !d.avail.Online() {
		d.log.Debug("dropping set patch while not online", "set", key)
		return
	}
	// In-flight calls are bounded by the transport timeout, not by the session.
	if err := d.patcher.PatchSet(context.Background(), key, patch); err != nil {
		d.log.Warn("set patch failed; continuing offline", "set", key, "error", err)
		d.avail.MarkOffline()
		return
	}
	d.log.Debug("set patch sent", "set", key)
}

// Stop cancels all pending timers and held patches. Later calls to Schedule
// and Resolve are ignored.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
	clear(d.held)
}

// Wait blocks until in-flight patch calls have returned. Call it after Stop.
func (d *Dispatcher) Wait() {
	d.sending.Wait()
}
