package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// SignatureSet tracks endpoint signatures that have already been seen.
// A Bloom filter answers the common "never seen" case without touching the
// exact map; the map resolves the filter's false positives.
type SignatureSet struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
	exact  map[string]struct{}
	count  int
}

// NewSignatureSet creates a set sized for the expected number of distinct
// signatures.
func NewSignatureSet(estimated int) *SignatureSet {
	if estimated < 1000 {
		estimated = 1000
	}
	return &SignatureSet{
		filter: bloom.NewWithEstimates(uint(estimated), 0.001),
		exact:  make(map[string]struct{}),
	}
}

// Add records a signature. Adding an already-present signature is a no-op.
func (s *SignatureSet) Add(sig string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.exact[sig]; !exists {
		s.filter.AddString(sig)
		s.exact[sig] = struct{}{}
		s.count++
	}
}

// Seen reports whether a signature has been recorded.
func (s *SignatureSet) Seen(sig string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.filter.TestString(sig) {
		return false
	}
	_, exists := s.exact[sig]
	return exists
}

// Count returns the number of distinct signatures recorded.
func (s *SignatureSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Reset empties the set.
func (s *SignatureSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.ClearAll()
	s.exact = make(map[string]struct{})
	s.count = 0
}
