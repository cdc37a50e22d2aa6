package store

import (
	"fmt"
	"log"

	"go-bosszp-automation/internal/models"
)

// SaveJobs writes the list endpoint harvest. It satisfies intercept.Persister.
func (s *Store) SaveJobs(jobs []models.JobListItem) error {
	return s.WriteJSON(JobListFile, nonNil(jobs))
}

func (s *Store) SaveDetails(details []models.JobDetailItem) error {
	return s.WriteJSON(JobDetailFile, nonNil(details))
}

// LoadDetails reads the saved details. Entries that are not detail items,
// such as list items from a hand-edited file, are skipped.
func (s *Store) LoadDetails() ([]models.JobDetailItem, error) {
	data, err := s.ReadRaw(JobDetailFile)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s not found, run a search first", JobDetailFile)
	}
	records, skipped, err := models.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", JobDetailFile, err)
	}
	details := models.Details(records)
	if skipped += len(records) - len(details); skipped > 0 {
		log.Printf("⚠️ Skipped %d entries of %s that are not job details", skipped, JobDetailFile)
	}
	return details, nil
}

// LoadCriteria returns the criteria of the previous run. found is false on
// the first run.
func (s *Store) LoadCriteria() (criteria models.UserCriteria, found bool, err error) {
	found, err = s.ReadJSON(UserInputFile, &criteria)
	return criteria, found, err
}

func (s *Store) SaveCriteria(criteria models.UserCriteria) error {
	return s.WriteJSON(UserInputFile, criteria)
}

// nonNil keeps empty results as [] rather than null on disk.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
