package crawl

import (
	"sync"

	"github.com/fwojciec/harvest/bloom"
)

// Seen-set sizing for one run.
const (
	seenExpectedRefs      = 50000
	seenFalsePositiveRate = 0.001
)

// SeenSet records the refs already yielded during a run so an item listed
// under several queries is processed once. It is safe for concurrent use.
// The bloom filter answers most first sightings without touching the map.
type SeenSet struct {
	mu     sync.Mutex
	filter *bloom.Filter
	refs   map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{
		filter: bloom.NewFilter(seenExpectedRefs, seenFalsePositiveRate),
		refs:   make(map[string]struct{}),
	}
}

// Add records ref and reports whether it was new.
func (s *SeenSet) Add(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestAndAdd(ref) {
		if _, ok := s.refs[ref]; ok {
			return false
		}
	}
	s.refs[ref] = struct{}{}
	return true
}

// Contains reports whether ref was added.
func (s *SeenSet) Contains(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter.Test(ref) {
		return false
	}
	_, ok := s.refs[ref]
	return ok
}

// Len returns the number of refs added.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}
