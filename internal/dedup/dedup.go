package dedup

import (
	"sync"

	"go-bosszp-automation/internal/filter"
	"go-bosszp-automation/internal/models"
)

// Seen is a set of job ids. It is safe for concurrent use.
type Seen struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSeen() *Seen {
	return &Seen{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *Seen) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[id]; exists {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Seen) IsSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.ids[id]
	return exists
}

func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Filter keeps the first occurrence of every id that satisfies m, in input
// order, and stops after limit records when limit > 0. A record is marked
// seen on first sight, so a later copy never replaces a rejected first one.
// records is not modified.
func Filter(records []models.Record, m filter.Matcher, limit int) []models.Record {
	return pass(records, m.Match, limit)
}

// Unique drops repeated ids and records without an id.
func Unique(records []models.Record) []models.Record {
	return pass(records, nil, 0)
}

func pass(records []models.Record, keep func(models.Record) bool, limit int) []models.Record {
	seen := NewSeen()
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if limit > 0 && len(out) >= limit {
			break
		}
		id, _, ok := r.Identify()
		if !ok {
			continue
		}
		if !seen.Add(id) {
			continue
		}
		if keep != nil && !keep(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterJobs is Filter over list items.
func FilterJobs(jobs []models.JobListItem, m filter.Matcher, limit int) []models.JobListItem {
	return models.Summaries(Filter(models.FromSummaries(jobs), m, limit))
}

// FilterDetails is Filter over detail items.
func FilterDetails(details []models.JobDetailItem, m filter.Matcher, limit int) []models.JobDetailItem {
	return models.Details(Filter(models.FromDetails(details), m, limit))
}

func UniqueJobs(jobs []models.JobListItem) []models.JobListItem {
	return models.Summaries(Unique(models.FromSummaries(jobs)))
}

func UniqueDetails(details []models.JobDetailItem) []models.JobDetailItem {
	return models.Details(Unique(models.FromDetails(details)))
}

// IDSet collects the ids of the given list items.
func IDSet(jobs []models.JobListItem) map[string]struct{} {
	set := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		if job.EncryptJobID != "" {
			set[job.EncryptJobID] = struct{}{}
		}
	}
	return set
}
