package dedup

import (
	"fmt"
	"sync"
	"testing"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/filter"
	"go-bosszp-automation/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(id, name string) models.JobListItem {
	return models.JobListItem{EncryptJobID: id, JobName: name, SalaryDesc: "20-30K", JobExperience: "3-5年"}
}

func ids(jobs []models.JobListItem) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.EncryptJobID)
	}
	return out
}

func testMatcher() filter.Matcher {
	return filter.NewMatcher(models.UserCriteria{Degree: "本科", Salary: "20-30K", Experience: "3"},
		config.DefaultDegrees, config.DefaultExcludeKeywords)
}

func TestUniqueKeepsFirstOccurrence(t *testing.T) {
	first := job("x2", "first")
	second := job("x2", "second")
	jobs := []models.JobListItem{job("x1", "a"), first, second, job("x3", "c")}

	got := UniqueJobs(jobs)

	assert.Equal(t, []string{"x1", "x2", "x3"}, ids(got))
	assert.Equal(t, "first", got[1].JobName)
}

func TestFilterAcrossTwoResponses(t *testing.T) {
	//two list responses: x1,x2 then x2,x3
	var collected []models.JobListItem
	collected = append(collected, job("x1", "Go"), job("x2", "Go"))
	collected = append(collected, job("x2", "Go"), job("x3", "Go"))

	got := FilterJobs(collected, testMatcher(), 0)
	assert.Equal(t, []string{"x1", "x2", "x3"}, ids(got))
}

func TestFilterSkipsInvalidAndExcluded(t *testing.T) {
	jobs := []models.JobListItem{
		{JobName: "no id"},
		job("a1", "产品经理"),
		job("a2", "Go 后端"),
	}
	got := FilterJobs(jobs, testMatcher(), 0)
	assert.Equal(t, []string{"a2"}, ids(got))
}

func TestFilterRejectedFirstCopyWins(t *testing.T) {
	rejected := job("a1", "销售")
	accepted := job("a1", "Go")
	got := FilterJobs([]models.JobListItem{rejected, accepted}, testMatcher(), 0)
	assert.Empty(t, got)
}

func TestFilterCap(t *testing.T) {
	var jobs []models.JobListItem
	for i := 0; i < 25; i++ {
		jobs = append(jobs, job(fmt.Sprintf("id%d", i), "Go"))
	}

	for _, limit := range []int{1, 10, 20, 30} {
		got := FilterJobs(jobs, testMatcher(), limit)
		assert.LessOrEqual(t, len(got), limit)
		assert.Equal(t, min(limit, 25), len(got))
	}
	assert.Len(t, FilterJobs(jobs, testMatcher(), 0), 25)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	jobs := []models.JobListItem{job("a", "Go"), job("a", "dup"), job("b", "产品")}
	before := append([]models.JobListItem(nil), jobs...)

	first := FilterJobs(jobs, testMatcher(), 0)
	second := FilterJobs(jobs, testMatcher(), 0)

	assert.Equal(t, before, jobs)
	assert.Equal(t, first, second)
}

func TestFilterMixedVariants(t *testing.T) {
	records := []models.Record{
		models.FromSummary(job("m1", "Go")),
		models.FromDetail(models.JobDetailItem{JobInfo: models.JobInfo{EncryptID: "m1", JobName: "Go"}}),
		models.FromDetail(models.JobDetailItem{JobInfo: models.JobInfo{EncryptID: "m2", JobName: "Go"}}),
		{},
	}
	got := Filter(records, testMatcher(), 0)
	require.Len(t, got, 2)
	assert.Equal(t, models.SummaryRecord, got[0].Kind)
	assert.Equal(t, models.DetailRecord, got[1].Kind)
}

func TestUniqueDetails(t *testing.T) {
	details := []models.JobDetailItem{
		{JobInfo: models.JobInfo{EncryptID: "d1"}, Lid: "first"},
		{JobInfo: models.JobInfo{EncryptID: "d1"}, Lid: "second"},
		{JobInfo: models.JobInfo{EncryptID: ""}},
	}
	got := UniqueDetails(details)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Lid)
}

func TestSeenConcurrentAdd(t *testing.T) {
	seen := NewSeen()
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if seen.Add(fmt.Sprintf("id%d", i%10)) {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, inserted)
	assert.Equal(t, 10, seen.Len())
	assert.True(t, seen.IsSeen("id3"))
	assert.False(t, seen.IsSeen("id11"))
}

func TestIDSet(t *testing.T) {
	set := IDSet([]models.JobListItem{job("a", ""), {JobName: "no id"}})
	assert.Len(t, set, 1)
	assert.Contains(t, set, "a")
}
