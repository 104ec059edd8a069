package cleanup

import (
	"errors"
	"log"
	"os"
	"sync"
)

// Logger is the subset of the file logger the reconciler needs.
type Logger interface {
	LogInfo(format string, v ...interface{})
	LogError(format string, v ...interface{})
}

// Reconciler removes image files whose rows were superseded or deleted
// by an already-committed transaction. Removal is best effort: each path
// is attempted independently, failures are logged and kept on a pending
// list for retry, and nothing here can affect the request outcome — the
// database has already reached its new state by the time this runs.
type Reconciler struct {
	mu      sync.Mutex
	pending []string
	logger  Logger
}

func NewReconciler(logger Logger) *Reconciler {
	if logger == nil {
		logger = stdLogger{}
	}
	return &Reconciler{logger: logger}
}

// Remove attempts to delete each path from disk. A file that is already
// missing counts as reconciled.
func (r *Reconciler) Remove(paths []string) {
	var failed []string
	for _, path := range paths {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.LogError("failed to delete file %s: %v", path, err)
			failed = append(failed, path)
			continue
		}
		r.logger.LogInfo("deleted file %s", path)
	}

	if len(failed) > 0 {
		r.mu.Lock()
		r.pending = append(r.pending, failed...)
		r.mu.Unlock()
	}
}

// Pending returns the paths whose removal has failed so far.
func (r *Reconciler) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.pending))
	copy(out, r.pending)
	return out
}

// Retry re-attempts every pending removal. Paths that fail again go back
// on the pending list.
func (r *Reconciler) Retry() {
	r.mu.Lock()
	paths := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(paths) > 0 {
		r.Remove(paths)
	}
}

type stdLogger struct{}

func (stdLogger) LogInfo(format string, v ...interface{})  { log.Printf("[INFO] "+format, v...) }
func (stdLogger) LogError(format string, v ...interface{}) { log.Printf("[ERROR] "+format, v...) }
