// Package state persists the set of already-processed identity keys between runs.
package state

import (
	"context"
	"fmt"

	"jobwatch/internal/dedup"
)

type LoadStatus string

const (
	LoadOK      LoadStatus = "ok"
	LoadAbsent  LoadStatus = "absent"
	LoadCorrupt LoadStatus = "corrupt"
	LoadIOError LoadStatus = "io_error"
)

type SaveStatus string

const (
	SaveOK      SaveStatus = "ok"
	SaveIOError SaveStatus = "io_error"
)

// LoadResult describes how a load went. Anything other than LoadOK comes with
// an empty set; LoadAbsent is the normal first-run case.
type LoadResult struct {
	Status LoadStatus
	Path   string
	Count  int
	Err    error
}

func (r LoadResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s (%s): %v", r.Status, r.Path, r.Err)
	}
	return fmt.Sprintf("%s (%s) keys=%d", r.Status, r.Path, r.Count)
}

// SaveResult reports a save, including the confirmed on-disk size.
type SaveResult struct {
	Status SaveStatus
	Path   string
	Count  int
	Bytes  int64
	Err    error
}

func (r SaveResult) OK() bool { return r.Status == SaveOK }

// Store loads and saves the complete seen set. Neither method panics or
// returns a bare error; failures are described by the result.
type Store interface {
	Load(ctx context.Context) (dedup.SeenSet, LoadResult)
	Save(ctx context.Context, seen dedup.SeenSet) SaveResult
}

// Backend names accepted in config.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}
