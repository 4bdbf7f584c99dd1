package transfer

import "sync"

// Tracker holds the observable state of a single upload. All methods are
// safe for concurrent use, so a caller can read progress from another
// goroutine while the upload loop is running.
type Tracker struct {
	mu        sync.Mutex
	progress  float64
	uploading bool
	err       error
}

// NewTracker creates a new Tracker instance.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Progress returns the current upload progress as a percentage (0-100).
func (t *Tracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// IsUploading reports whether an upload is currently running.
func (t *Tracker) IsUploading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploading
}

// Err returns the error of the last upload, or nil.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tracker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = 0
	t.err = nil
	t.uploading = true
}

func (t *Tracker) setProgress(percent float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = percent
}

func (t *Tracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploading = false
	t.err = err
}
