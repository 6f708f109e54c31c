package saga

import (
	"sync"
	"time"
)

// record is the engine's live, mutable view of one deployment. All access to
// the embedded Deployment goes through the mutex; callers outside the engine
// only ever see snapshots.
type record struct {
	mu         sync.Mutex
	d          Deployment
	scratchDir string
	leaseKey   string
}

func (r *record) snapshot() Deployment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneDeployment(r.d)
}

func (r *record) update(fn func(d *Deployment)) {
	r.mu.Lock()
	fn(&r.d)
	r.mu.Unlock()
}

func (r *record) status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.d.Status
}

// transition moves the deployment from one status to another. It returns
// false without mutating when the current status differs, which is how the
// engine detects a cancellation that won the race.
func (r *record) transition(from, to Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.d.Status != from {
		return false
	}
	r.d.Status = to
	return true
}

// finalize moves a running deployment to a terminal status and stamps the
// completion fields under one lock. It returns false without mutating when
// the deployment is no longer running, meaning Cancel won the race.
func (r *record) finalize(to Status, now time.Time, duration time.Duration, fn func(d *Deployment)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.d.Status != StatusRunning {
		return false
	}
	r.d.Status = to
	r.d.CompletedAt = now
	r.d.Duration = duration
	if fn != nil {
		fn(&r.d)
	}
	return true
}

// cancel marks the deployment cancelled unless it already reached a terminal
// status. It returns the scratch directory for cleanup.
func (r *record) cancel(now time.Time) (scratch string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.d.Status.Terminal() {
		return "", false
	}
	r.d.Status = StatusCancelled
	r.d.CompletedAt = now
	r.d.Duration = now.Sub(r.d.StartedAt)
	return r.scratchDir, true
}

func (r *record) beginStep(name string, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.d.Steps = append(r.d.Steps, Step{
		Name:      name,
		Status:    StepRunning,
		StartedAt: now,
	})
	return len(r.d.Steps) - 1
}

func (r *record) finishStep(idx int, status StepStatus, duration time.Duration, meta map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step := &r.d.Steps[idx]
	step.Status = status
	step.Duration = duration
	if len(meta) > 0 {
		step.Metadata = meta
	}
}

func (r *record) setScratch(dir string) {
	r.mu.Lock()
	r.scratchDir = dir
	r.mu.Unlock()
}

func (r *record) scratch() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scratchDir
}

func (r *record) setLease(key string) {
	r.mu.Lock()
	r.leaseKey = key
	r.mu.Unlock()
}

func (r *record) takeLease() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.leaseKey
	r.leaseKey = ""
	return key
}

// registry holds every deployment the engine has accepted, in insertion
// order. Records are never evicted while the process runs; durable history
// lives in the recorder.
type registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

func newRegistry() *registry {
	return &registry{records: make(map[string]*record)}
}

func (r *registry) add(rec *record) {
	r.mu.Lock()
	r.records[rec.d.ID] = rec
	r.order = append(r.order, rec.d.ID)
	r.mu.Unlock()
}

func (r *registry) lookup(id string) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}

// list returns snapshots of every deployment, newest first.
func (r *registry) list() []Deployment {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	records := make([]*record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		records = append(records, r.records[ids[i]])
	}
	r.mu.RUnlock()

	out := make([]Deployment, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.snapshot())
	}
	return out
}
