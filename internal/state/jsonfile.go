package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"jobwatch/internal/dedup"
)

// JSONFileStore keeps the seen set as a sorted, indented JSON array of strings
// so the file diffs cleanly when committed back to a repository.
type JSONFileStore struct {
	path string
}

func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

func (s *JSONFileStore) Path() string { return s.path }

func (s *JSONFileStore) Load(_ context.Context) (dedup.SeenSet, LoadResult) {
	res := LoadResult{Path: s.path}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Status = LoadAbsent
			return dedup.NewSeenSet(), res
		}
		res.Status = LoadIOError
		res.Err = err
		return dedup.NewSeenSet(), res
	}

	var raw []*string
	if err := json.Unmarshal(b, &raw); err != nil {
		res.Status = LoadCorrupt
		res.Err = fmt.Errorf("decode %s: %w", s.path, err)
		return dedup.NewSeenSet(), res
	}
	// "null" decodes without error but is not a list
	if raw == nil {
		res.Status = LoadCorrupt
		res.Err = fmt.Errorf("decode %s: expected a JSON array", s.path)
		return dedup.NewSeenSet(), res
	}

	// Every element must be a non-blank string; DeriveKey never yields anything else.
	keys := make([]string, 0, len(raw))
	for i, k := range raw {
		if k == nil || strings.TrimSpace(*k) == "" {
			res.Status = LoadCorrupt
			res.Err = fmt.Errorf("decode %s: element %d is not a key", s.path, i)
			return dedup.NewSeenSet(), res
		}
		keys = append(keys, *k)
	}

	seen := dedup.NewSeenSet(keys...)
	res.Status = LoadOK
	res.Count = seen.Len()
	return seen, res
}

func (s *JSONFileStore) Save(_ context.Context, seen dedup.SeenSet) SaveResult {
	res := SaveResult{Path: s.path, Count: seen.Len()}

	fail := func(err error) SaveResult {
		res.Status = SaveIOError
		res.Err = err
		return res
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fail(fmt.Errorf("ensure state dir: %w", err))
	}

	b, err := json.MarshalIndent(seen.Sorted(), "", "  ")
	if err != nil {
		return fail(err)
	}
	b = append(b, '\n')

	if err := writeAtomic(s.path, b); err != nil {
		return fail(err)
	}

	// Confirm the write landed
	fi, err := os.Stat(s.path)
	if err != nil {
		return fail(fmt.Errorf("confirm state file: %w", err))
	}
	if fi.Size() != int64(len(b)) {
		return fail(fmt.Errorf("state file size %d, wrote %d", fi.Size(), len(b)))
	}

	res.Status = SaveOK
	res.Bytes = fi.Size()
	return res
}

func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
