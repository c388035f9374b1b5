package dedup

import "sort"

// SeenSet holds every identity key processed by this or an earlier run.
// Keys are only ever added.
type SeenSet struct {
	keys map[string]struct{}
}

func NewSeenSet(keys ...string) SeenSet {
	s := SeenSet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s *SeenSet) Add(key string) {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	s.keys[key] = struct{}{}
}

func (s SeenSet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

func (s SeenSet) Len() int { return len(s.keys) }

// Sorted returns the keys in lexical order; the persisted form relies on it.
func (s SeenSet) Sorted() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s SeenSet) Clone() SeenSet {
	c := SeenSet{keys: make(map[string]struct{}, len(s.keys))}
	for k := range s.keys {
		c.keys[k] = struct{}{}
	}
	return c
}

func (s SeenSet) Equal(o SeenSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.keys {
		if !o.Has(k) {
			return false
		}
	}
	return true
}
