package store

import (
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu          sync.Mutex
	submissions []Submission
	next        int64
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// RecordSubmission implements Recorder.
func (s *MemStore) RecordSubmission(sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	sub.ID = s.next
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	s.submissions = append(s.submissions, sub)
	return nil
}

// ListSubmissions implements Store.
func (s *MemStore) ListSubmissions(limit int) ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Submission(nil), s.submissions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Last returns the most recent submission, or nil.
func (s *MemStore) Last() *Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.submissions) == 0 {
		return nil
	}
	last := s.submissions[len(s.submissions)-1]
	return &last
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
