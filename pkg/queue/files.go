package queue

import (
	"os"
	"sync"
	"time"

	"github.com/latoulicious/Musho/pkg/logging"
)

const (
	deleteAttempts = 3
	deleteBackoff  = 1 * time.Second
)

// FileRegistry tracks how many queue or playback entries still point at a
// downloaded file. The table is process-wide and keyed by path; a file is
// deleted only when its count reaches zero. Deletion retries a few times
// with backoff because the audio sink can still hold an OS-level lock
// briefly after playback ends.
type FileRegistry struct {
	mu      sync.Mutex
	counts  map[string]int
	backoff time.Duration
	logger  logging.Logger
}

// NewFileRegistry creates an empty reference-count table
func NewFileRegistry(logger logging.Logger) *FileRegistry {
	return &FileRegistry{
		counts:  make(map[string]int),
		backoff: deleteBackoff,
		logger:  logger,
	}
}

// Retain increments the reference count for path
func (r *FileRegistry) Retain(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[path]++
}

// Release decrements the reference count for path, scheduling deletion when
// the count reaches zero. Releasing an untracked path is a no-op.
func (r *FileRegistry) Release(path string) {
	if path == "" {
		return
	}

	r.mu.Lock()
	count, ok := r.counts[path]
	if !ok {
		r.mu.Unlock()
		return
	}
	count--
	if count > 0 {
		r.counts[path] = count
		r.mu.Unlock()
		return
	}
	delete(r.counts, path)
	r.mu.Unlock()

	go r.deleteWithRetries(path)
}

// Count returns the current reference count for path
func (r *FileRegistry) Count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[path]
}

func (r *FileRegistry) deleteWithRetries(path string) {
	for attempt := 1; attempt <= deleteAttempts; attempt++ {
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			r.logger.Debug("removed unreferenced file", map[string]interface{}{
				"path":    path,
				"attempt": attempt,
			})
			return
		}

		if attempt < deleteAttempts {
			time.Sleep(r.backoff)
			continue
		}

		// Abandon after exhaustion; the file stays on disk until the next
		// process restart clears the scratch directory.
		r.logger.Warn("giving up deleting file after repeated failures", map[string]interface{}{
			"path":     path,
			"attempts": deleteAttempts,
			"error":    err.Error(),
		})
	}
}
