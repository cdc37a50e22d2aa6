// Package intercept harvests job records from the list and detail endpoints
// while passing every response through to the page unchanged.
package intercept

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"

	"go-bosszp-automation/internal/models"
)

type Request struct {
	URL string
}

type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

type Action int

const (
	// Fulfill answers the request with Decision.Response.
	Fulfill Action = iota
	// Continue lets the request go to the network untouched.
	Continue
)

type Decision struct {
	Action   Action
	Response *Response
}

// FetchFunc performs the real request.
type FetchFunc func() (*Response, error)

// Handler decides what the page receives for one intercepted request.
type Handler func(req Request, fetch FetchFunc) Decision

// Persister receives the full list after every successful list response.
type Persister interface {
	SaveJobs(jobs []models.JobListItem) error
}

type Interceptor struct {
	collector *Collector
	persister Persister

	// persistMu spans append and save so the newest snapshot is written last.
	persistMu sync.Mutex
	stopped   bool
}

// New builds an interceptor. persister may be nil.
func New(collector *Collector, persister Persister) *Interceptor {
	return &Interceptor{collector: collector, persister: persister}
}

func (i *Interceptor) Collector() *Collector { return i.collector }

// Stop ends the write-through. It waits for a save in progress; responses
// arriving later are still collected but no longer persisted.
func (i *Interceptor) Stop() {
	i.persistMu.Lock()
	defer i.persistMu.Unlock()
	i.stopped = true
}

// harvestJobs appends items and persists the resulting list under persistMu.
func (i *Interceptor) harvestJobs(items []models.JobListItem) []models.JobListItem {
	i.persistMu.Lock()
	defer i.persistMu.Unlock()

	jobs := i.collector.AppendJobs(items)
	if i.persister == nil || i.stopped {
		return jobs
	}
	if err := i.persister.SaveJobs(jobs); err != nil {
		log.Printf("⚠️ Failed to persist job list: %v", err)
	}
	return jobs
}

// HandleList records pagination, then harvests zpData.jobList on code 0.
func (i *Interceptor) HandleList(req Request, fetch FetchFunc) Decision {
	log.Printf("📥 Job list response: %s", req.URL)

	if p, ok := parsePagination(req.URL); ok {
		i.collector.SetPagination(p)
	}

	resp, err := fetch()
	if err != nil {
		log.Printf("⚠️ Failed to fetch job list: %v", err)
		return Decision{Action: Continue}
	}

	var payload models.JobListResponse
	if err := decode(resp, &payload); err != nil {
		log.Printf("⚠️ Failed to decode job list: %v", err)
		return Decision{Action: Continue}
	}

	if succeeded(resp, payload.Code) {
		jobs := i.harvestJobs(payload.ZpData.JobList)
		log.Printf("   +%d jobs (%d collected)", len(payload.ZpData.JobList), len(jobs))
	} else {
		log.Printf("   job list not harvested (status %d, code %d: %s)", resp.Status, payload.Code, payload.Message)
	}

	return Decision{Action: Fulfill, Response: resp}
}

// HandleDetail harvests one detail item on code 0.
func (i *Interceptor) HandleDetail(req Request, fetch FetchFunc) Decision {
	log.Printf("📥 Job detail response: %s", req.URL)

	resp, err := fetch()
	if err != nil {
		log.Printf("⚠️ Failed to fetch job detail: %v", err)
		return Decision{Action: Continue}
	}

	var payload models.JobDetailResponse
	if err := decode(resp, &payload); err != nil {
		log.Printf("⚠️ Failed to decode job detail: %v", err)
		return Decision{Action: Continue}
	}

	if succeeded(resp, payload.Code) {
		n := i.collector.AppendDetail(payload.ZpData)
		log.Printf("   +1 detail %q (%d collected)", payload.ZpData.JobInfo.JobName, n)
	} else {
		log.Printf("   job detail not harvested (status %d, code %d: %s)", resp.Status, payload.Code, payload.Message)
	}

	return Decision{Action: Fulfill, Response: resp}
}

// succeeded means a 2xx answer carrying code 0; anything else is passed on
// without being harvested.
func succeeded(resp *Response, code int) bool {
	return resp.Status >= 200 && resp.Status < 300 && code == 0
}

func decode(resp *Response, v any) error {
	if resp == nil {
		return errors.New("no response")
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("status %d: %w", resp.Status, err)
	}
	return nil
}

// parsePagination reads page and pageSize, defaulting to 1 and 10.
func parsePagination(rawURL string) (Pagination, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Pagination{}, false
	}
	q := u.Query()
	p := Pagination{Page: 1, PageSize: 10}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v > 0 {
		p.PageSize = v
	}
	return p, true
}
