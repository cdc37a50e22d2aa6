package intercept

import (
	"sync"

	"go-bosszp-automation/internal/models"
)

// Pagination is the page/pageSize last seen on an outgoing list request.
type Pagination struct {
	Page     int
	PageSize int
}

// Cap is the number of results the pages seen so far can hold.
func (p Pagination) Cap() int {
	return p.Page * p.PageSize
}

// Collector accumulates the records of one search session. Appends come
// from interception callbacks and may run concurrently; readers get copies.
type Collector struct {
	mu         sync.Mutex
	jobs       []models.JobListItem
	details    []models.JobDetailItem
	pagination Pagination
}

func NewCollector() *Collector {
	return &Collector{pagination: Pagination{Page: 1, PageSize: 10}}
}

// AppendJobs adds items and returns a snapshot of the whole list.
func (c *Collector) AppendJobs(items []models.JobListItem) []models.JobListItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, items...)
	return append([]models.JobListItem(nil), c.jobs...)
}

func (c *Collector) AppendDetail(item models.JobDetailItem) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details = append(c.details, item)
	return len(c.details)
}

func (c *Collector) Jobs() []models.JobListItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.JobListItem(nil), c.jobs...)
}

func (c *Collector) Details() []models.JobDetailItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.JobDetailItem(nil), c.details...)
}

func (c *Collector) Pagination() Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

func (c *Collector) SetPagination(p Pagination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagination = p
}
