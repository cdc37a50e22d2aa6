package intercept

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-bosszp-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	mu    sync.Mutex
	saves [][]models.JobListItem
	err   error
}

func (m *memPersister) SaveJobs(jobs []models.JobListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, jobs)
	return m.err
}

func (m *memPersister) last() []models.JobListItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

// slowPersister stalls its first save, the way a slow disk would.
type slowPersister struct {
	memPersister
	delay time.Duration
	calls int
}

func (s *slowPersister) SaveJobs(jobs []models.JobListItem) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		time.Sleep(s.delay)
	}
	return s.memPersister.SaveJobs(jobs)
}

func listBody(ids ...string) string {
	body := `{"code":0,"zpData":{"jobList":[`
	for n, id := range ids {
		if n > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"encryptJobId":%q,"jobName":"Go"}`, id)
	}
	return body + `]}}`
}

func respond(status int, body string) FetchFunc {
	return func() (*Response, error) {
		return &Response{
			Status:  status,
			Headers: map[string]string{"content-type": "application/json", "x-trace": "abc"},
			Body:    []byte(body),
		}, nil
	}
}

const listURL = "https://www.zhipin.com/wapi/zpgeek/search/joblist.json"

func TestHandleListHarvestsAndPassesThrough(t *testing.T) {
	persister := &memPersister{}
	i := New(NewCollector(), persister)
	body := `{"code":0,"message":"Success","zpData":{"jobList":[{"encryptJobId":"x1","jobName":"Go"},{"encryptJobId":"x2","jobName":"Go"}],"extra":true}}`
	fetch := respond(200, body)

	d := i.HandleList(Request{URL: listURL + "?query=go&page=3&pageSize=15"}, fetch)

	require.Equal(t, Fulfill, d.Action)
	original, _ := fetch()
	assert.Equal(t, original.Status, d.Response.Status)
	assert.Equal(t, original.Headers, d.Response.Headers)
	assert.Equal(t, body, string(d.Response.Body), "body must reach the page unchanged")

	assert.Len(t, i.Collector().Jobs(), 2)
	assert.Equal(t, Pagination{Page: 3, PageSize: 15}, i.Collector().Pagination())
	assert.Equal(t, 45, i.Collector().Pagination().Cap())
	require.Len(t, persister.saves, 1)
	assert.Len(t, persister.saves[0], 2)
}

func TestHandleListNonZeroCodeIsNotHarvested(t *testing.T) {
	persister := &memPersister{}
	i := New(NewCollector(), persister)

	d := i.HandleList(Request{URL: listURL}, respond(200, `{"code":37,"message":"您的访问行为异常","zpData":{}}`))

	assert.Equal(t, Fulfill, d.Action)
	assert.Empty(t, i.Collector().Jobs())
	assert.Empty(t, persister.saves)
	assert.Equal(t, Pagination{Page: 1, PageSize: 10}, i.Collector().Pagination())
}

func TestHandleListFailsOpen(t *testing.T) {
	i := New(NewCollector(), nil)

	d := i.HandleList(Request{URL: listURL}, respond(502, `<html>bad gateway</html>`))
	assert.Equal(t, Continue, d.Action)
	assert.Nil(t, d.Response)

	d = i.HandleList(Request{URL: listURL}, func() (*Response, error) {
		return nil, errors.New("connection reset")
	})
	assert.Equal(t, Continue, d.Action)
	assert.Empty(t, i.Collector().Jobs())
}

func TestHandleListPersistFailureStillFulfills(t *testing.T) {
	i := New(NewCollector(), &memPersister{err: errors.New("disk full")})
	d := i.HandleList(Request{URL: listURL}, respond(200, `{"code":0,"zpData":{"jobList":[{"encryptJobId":"x1","jobName":"Go"}]}}`))
	assert.Equal(t, Fulfill, d.Action)
	assert.Len(t, i.Collector().Jobs(), 1)
}

func TestHandleDetail(t *testing.T) {
	i := New(NewCollector(), nil)
	body := `{"code":0,"message":"Success","zpData":{"securityId":"s1","lid":"l1","jobInfo":{"encryptId":"d1","jobName":"Go 后端","postDescription":"写代码"}}}`

	d := i.HandleDetail(Request{URL: "https://www.zhipin.com/wapi/zpgeek/job/detail.json?securityId=s1&lid=l1"}, respond(200, body))

	require.Equal(t, Fulfill, d.Action)
	assert.Equal(t, body, string(d.Response.Body))
	details := i.Collector().Details()
	require.Len(t, details, 1)
	assert.Equal(t, "d1", details[0].JobInfo.EncryptID)
	assert.Equal(t, "写代码", details[0].JobInfo.PostDescription)

	d = i.HandleDetail(Request{URL: "x"}, respond(200, `not json`))
	assert.Equal(t, Continue, d.Action)
	assert.Len(t, i.Collector().Details(), 1)
}

func TestConcurrentHandlers(t *testing.T) {
	i := New(NewCollector(), &memPersister{})
	var wg sync.WaitGroup
	for n := 0; n < 20; n++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			i.HandleList(Request{URL: listURL}, respond(200, `{"code":0,"zpData":{"jobList":[{"encryptJobId":"x","jobName":"Go"}]}}`))
		}()
		go func() {
			defer wg.Done()
			i.HandleDetail(Request{URL: "d"}, respond(200, `{"code":0,"zpData":{"jobInfo":{"encryptId":"d"}}}`))
		}()
	}
	wg.Wait()

	assert.Len(t, i.Collector().Jobs(), 20)
	assert.Len(t, i.Collector().Details(), 20)
	persister := i.persister.(*memPersister)
	assert.Len(t, persister.saves, 20)
	assert.Equal(t, i.Collector().Jobs(), persister.last(), "the last save holds every job")
}

func TestHandleListSavesNewestListLast(t *testing.T) {
	persister := &slowPersister{delay: 100 * time.Millisecond}
	i := New(NewCollector(), persister)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		i.HandleList(Request{URL: listURL}, respond(200, listBody("x1", "x2")))
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		i.HandleList(Request{URL: listURL}, respond(200, listBody("x3")))
	}()
	wg.Wait()

	require.Len(t, i.Collector().Jobs(), 3)
	assert.Equal(t, i.Collector().Jobs(), persister.last())
}

func TestStopEndsWriteThrough(t *testing.T) {
	persister := &memPersister{}
	i := New(NewCollector(), persister)

	i.HandleList(Request{URL: listURL}, respond(200, listBody("x1")))
	i.Stop()
	d := i.HandleList(Request{URL: listURL}, respond(200, listBody("x2")))

	assert.Equal(t, Fulfill, d.Action, "the page still gets its response")
	assert.Len(t, i.Collector().Jobs(), 2)
	require.Len(t, persister.saves, 1)
	assert.Equal(t, "x1", persister.saves[0][0].EncryptJobID)
}

func TestParsePagination(t *testing.T) {
	p, ok := parsePagination(listURL + "?page=2")
	require.True(t, ok)
	assert.Equal(t, Pagination{Page: 2, PageSize: 10}, p)

	p, ok = parsePagination(listURL + "?page=abc&pageSize=-1")
	require.True(t, ok)
	assert.Equal(t, Pagination{Page: 1, PageSize: 10}, p)

	_, ok = parsePagination("://bad")
	assert.False(t, ok)
}

func TestHandleListErrorStatusIsNotHarvested(t *testing.T) {
	i := New(NewCollector(), nil)
	d := i.HandleList(Request{URL: listURL}, respond(500, `{"code":0,"zpData":{"jobList":[{"encryptJobId":"x1","jobName":"Go"}]}}`))
	assert.Equal(t, Fulfill, d.Action)
	assert.Equal(t, 500, d.Response.Status)
	assert.Empty(t, i.Collector().Jobs())
}
