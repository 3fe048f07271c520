package ingest

import (
	"path/filepath"
	"sync"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// Tracker remembers which receipts a run has already taken, by path and by
// content hash.
type Tracker struct {
	mu     sync.Mutex
	paths  map[string]struct{}
	hashes map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{paths: map[string]struct{}{}, hashes: map[string]string{}}
}

// Seed records files from a Walk. Failed entries are ignored.
func (t *Tracker) Seed(files []File) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range files {
		if f.Err != "" {
			continue
		}
		path := filepath.Clean(f.Path)
		t.paths[path] = struct{}{}
		if _, ok := t.hashes[f.HashHex]; !ok {
			t.hashes[f.HashHex] = path
		}
	}
}

// Claim hashes path and reports whether it is new to this run. A path seen
// before, or bytes identical to an earlier file, is not claimed again.
func (t *Tracker) Claim(path string) (File, bool, error) {
	path = filepath.Clean(path)
	t.mu.Lock()
	_, seenPath := t.paths[path]
	t.mu.Unlock()
	if seenPath {
		return File{Path: path}, false, nil
	}

	f, err := describe(path, constants.NormalizeExt(filepath.Ext(path)))
	if err != nil {
		return File{Path: path}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.paths[path]; ok {
		return f, false, nil
	}
	t.paths[path] = struct{}{}
	if first, ok := t.hashes[f.HashHex]; ok {
		f.DuplicateOf = first
		return f, false, nil
	}
	t.hashes[f.HashHex] = path
	return f, true, nil
}
