package zhipin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/intercept"
	"go-bosszp-automation/internal/models"
	"go-bosszp-automation/internal/scraper"
	"go-bosszp-automation/internal/scraper/scrapertest"
	"go-bosszp-automation/internal/session"
	"go-bosszp-automation/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var criteria = models.UserCriteria{
	Degree:     "本科",
	Salary:     "25-30K",
	Experience: "2",
	JobNames:   []string{"golang"},
	MaxSize:    3,
}

func testOptions(t *testing.T) Options {
	t.Helper()
	site, err := config.LookupSite("ZHIPIN")
	require.NoError(t, err)
	return Options{
		Site:             site,
		Pacing:           config.Pacing{Poll: scraper.Delay{Min: time.Millisecond, Max: time.Millisecond}},
		URLChangeTimeout: 30 * time.Millisecond,
		MaxScrollRounds:  10,
		Degrees:          config.DefaultDegrees,
		Exclusions:       config.DefaultExcludeKeywords,
	}
}

func job(id string) models.JobListItem {
	return models.JobListItem{
		EncryptJobID:  id,
		JobName:       "Go 后端开发",
		JobDegree:     "本科",
		JobExperience: "1-3年",
		SalaryDesc:    "20-30K",
	}
}

func detail(id string) models.JobDetailItem {
	return models.JobDetailItem{
		SecurityID: "sec-" + id,
		JobInfo: models.JobInfo{
			EncryptID:      id,
			JobName:        "Go 后端开发",
			DegreeName:     "本科",
			ExperienceName: "1-3年",
			SalaryDesc:     "20-30K",
		},
	}
}

func listBody(t *testing.T, jobs ...models.JobListItem) string {
	t.Helper()
	resp := models.JobListResponse{Code: 0, Message: "Success"}
	resp.ZpData.JobList = jobs
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func detailBody(t *testing.T, d models.JobDetailItem) string {
	t.Helper()
	data, err := json.Marshal(models.JobDetailResponse{Code: 0, Message: "Success", ZpData: d})
	require.NoError(t, err)
	return string(data)
}

func card(id string) *scrapertest.Element {
	return &scrapertest.Element{Attrs: map[string]string{"href": "/job_detail/" + id + ".html?lid=abc"}}
}

type memPersister struct {
	mu    sync.Mutex
	saves int
}

func (m *memPersister) SaveJobs(jobs []models.JobListItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

func TestJobIDFromHref(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/job_detail/abc123.html", "abc123"},
		{"https://www.zhipin.com/job_detail/abc123.html?ka=search_list_1", "abc123"},
		{"abc123", "abc123"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, jobIDFromHref(tt.href))
		})
	}
}

func TestClickOrder(t *testing.T) {
	a, b, c := card("a"), card("b"), card("c")
	got := clickOrder([]scraper.Element{a, b, c})
	assert.Equal(t, []scraper.Element{b, a, c}, got)

	single := []scraper.Element{a}
	assert.Equal(t, single, clickOrder(single))
}

func TestSearchJob(t *testing.T) {
	t.Run("home page box", func(t *testing.T) {
		page := scrapertest.NewPage()
		box := &scrapertest.Element{}
		page.Elements["input.ipt-search"] = []scraper.Element{box}
		s := NewSpider(page, testOptions(t), nil, nil)

		require.NoError(t, s.SearchJob(context.Background(), "golang"))
		assert.Equal(t, []string{"golang"}, box.Filled)
		assert.Equal(t, []string{"Enter"}, box.Pressed)
		assert.Equal(t, []scraper.LoadState{scraper.LoadStateLoad}, page.Waits)
	})

	t.Run("search page box", func(t *testing.T) {
		page := scrapertest.NewPage()
		box := &scrapertest.Element{}
		page.Elements[searchInputSelector] = []scraper.Element{box}
		s := NewSpider(page, testOptions(t), nil, nil)

		require.NoError(t, s.SearchJob(context.Background(), "rust"))
		assert.Equal(t, []string{"rust"}, box.Filled)
	})

	t.Run("no box", func(t *testing.T) {
		page := scrapertest.NewPage()
		s := NewSpider(page, testOptions(t), nil, nil)

		err := s.SearchJob(context.Background(), "golang")
		assert.ErrorIs(t, err, ErrSearchBoxNotFound)
		assert.Equal(t, []string{"search_box_missing"}, page.Shots)
	})
}

func TestScrollPage(t *testing.T) {
	t.Run("stops once the target is reached", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.Heights = []int{100, 200, 300, 400}
		s := NewSpider(page, testOptions(t), nil, nil)
		sess, err := s.begin()
		require.NoError(t, err)

		batches := [][]models.JobListItem{
			{job("x1"), job("x2")},
			{job("x2"), job("x3"), job("x4")},
		}
		scrolls := 0
		page.OnScroll = func() {
			if scrolls < len(batches) {
				page.Serve(s.opts.Site.URLs.JobList+"?page=1&pageSize=30", scrapertest.JSON(listBody(t, batches[scrolls]...)))
			}
			scrolls++
		}

		require.NoError(t, s.ScrollPage(context.Background(), sess, criteria, 1))
		assert.Equal(t, 2, scrolls)
		assert.Len(t, s.matchedJobs(sess, s.matcher(criteria)), 4)
		assert.Contains(t, page.Waits, scraper.LoadStateNetworkIdle)
	})

	t.Run("stops when the height does not change", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.Heights = []int{100}
		s := NewSpider(page, testOptions(t), nil, nil)
		sess, err := s.begin()
		require.NoError(t, err)

		require.NoError(t, s.ScrollPage(context.Background(), sess, criteria, 1))
		assert.Equal(t, []string{scrollHeightScript, scrollBottomScript, scrollHeightScript}, page.Scripts)
	})

	t.Run("bounded by max rounds", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.Heights = []int{1, 2, 3, 4, 5, 6, 7, 8}
		opts := testOptions(t)
		opts.MaxScrollRounds = 3
		s := NewSpider(page, opts, nil, nil)
		sess, err := s.begin()
		require.NoError(t, err)

		require.NoError(t, s.ScrollPage(context.Background(), sess, criteria, 1))
		scrolled := 0
		for _, script := range page.Scripts {
			if script == scrollBottomScript {
				scrolled++
			}
		}
		assert.Equal(t, 3, scrolled)
	})

	t.Run("network idle timeout is not fatal", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.Heights = []int{100, 200}
		page.WaitErr = errors.New("timeout 30000ms exceeded")
		s := NewSpider(page, testOptions(t), nil, nil)
		sess, err := s.begin()
		require.NoError(t, err)

		assert.NoError(t, s.ScrollPage(context.Background(), sess, criteria, 1))
	})

	t.Run("closed page", func(t *testing.T) {
		page := scrapertest.NewPage()
		s := NewSpider(page, testOptions(t), nil, nil)
		sess, err := s.begin()
		require.NoError(t, err)
		page.Close()

		assert.ErrorIs(t, s.ScrollPage(context.Background(), sess, criteria, 1), ErrPageClosed)
	})
}

func TestClickAllJobs(t *testing.T) {
	matched := []models.JobListItem{job("a"), job("b"), job("c")}

	t.Run("clicks matching cards second first", func(t *testing.T) {
		page := scrapertest.NewPage()
		var order []string
		cards := []*scrapertest.Element{card("a"), card("zzz"), card("b"), card("c")}
		broken := &scrapertest.Element{AttrErr: errors.New("detached")}
		for _, c := range cards {
			c := c
			c.OnClick = func() { order = append(order, jobIDFromHref(c.Attrs["href"])) }
		}
		page.Elements[jobCardSelector] = []scraper.Element{cards[0], broken, cards[1], cards[2], cards[3]}
		s := NewSpider(page, testOptions(t), nil, nil)

		require.NoError(t, s.ClickAllJobs(context.Background(), matched))
		assert.Equal(t, []string{"b", "a", "c"}, order)
		assert.Zero(t, cards[1].ClickCount())
	})

	t.Run("click errors are skipped", func(t *testing.T) {
		page := scrapertest.NewPage()
		a, b, c := card("a"), card("b"), card("c")
		b.ClickErr = errors.New("not visible")
		page.Elements[jobCardSelector] = []scraper.Element{a, b, c}
		s := NewSpider(page, testOptions(t), nil, nil)

		require.NoError(t, s.ClickAllJobs(context.Background(), matched))
		assert.Equal(t, 1, a.ClickCount())
		assert.Equal(t, 1, c.ClickCount())
	})

	t.Run("fewer than two matches", func(t *testing.T) {
		page := scrapertest.NewPage()
		a, other := card("a"), card("other")
		page.Elements[jobCardSelector] = []scraper.Element{a, other}
		s := NewSpider(page, testOptions(t), nil, nil)

		require.NoError(t, s.ClickAllJobs(context.Background(), matched))
		assert.Zero(t, a.ClickCount())
	})

	t.Run("page closed mid way", func(t *testing.T) {
		page := scrapertest.NewPage()
		a, b, c := card("a"), card("b"), card("c")
		b.OnClick = page.Close
		page.Elements[jobCardSelector] = []scraper.Element{a, b, c}
		s := NewSpider(page, testOptions(t), nil, nil)

		assert.ErrorIs(t, s.ClickAllJobs(context.Background(), matched), ErrPageClosed)
		assert.Equal(t, 1, b.ClickCount())
		assert.Zero(t, a.ClickCount())
	})
}

func TestWaitForURLChange(t *testing.T) {
	t.Run("changed", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.URLs = []string{"home", "home", "search?query=go"}
		s := NewSpider(page, testOptions(t), nil, nil)

		got, ok := s.WaitForURLChange(context.Background(), "home", time.Second)
		assert.True(t, ok)
		assert.Equal(t, "search?query=go", got)
	})

	t.Run("timeout", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.CurrentURL = "home"
		s := NewSpider(page, testOptions(t), nil, nil)

		_, ok := s.WaitForURLChange(context.Background(), "home", 20*time.Millisecond)
		assert.False(t, ok)
	})

	t.Run("closed", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.Close()
		s := NewSpider(page, testOptions(t), nil, nil)

		_, ok := s.WaitForURLChange(context.Background(), "home", time.Second)
		assert.False(t, ok)
	})

	t.Run("cancelled", func(t *testing.T) {
		page := scrapertest.NewPage()
		page.CurrentURL = "home"
		s := NewSpider(page, testOptions(t), nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, ok := s.WaitForURLChange(ctx, "home", time.Second)
		assert.False(t, ok)
	})
}

// fakeSite serves list responses on scroll and detail responses on click.
func fakeSite(t *testing.T, s *Spider, page *scrapertest.Page, ids ...string) {
	t.Helper()
	jobs := make([]models.JobListItem, len(ids))
	cards := make([]scraper.Element, len(ids))
	for i, id := range ids {
		jobs[i] = job(id)
		c := card(id)
		d := detail(id)
		c.OnClick = func() {
			page.Serve(s.opts.Site.URLs.JobDetail+"?securityId="+d.SecurityID, scrapertest.JSON(detailBody(t, d)))
		}
		cards[i] = c
	}
	page.Elements[jobCardSelector] = cards
	page.Heights = []int{100, 200, 200}
	page.OnScroll = func() {
		page.Serve(s.opts.Site.URLs.JobList+"?page=1&pageSize=30", scrapertest.JSON(listBody(t, jobs...)))
	}
}

func TestSearch(t *testing.T) {
	page := scrapertest.NewPage()
	page.Elements["input.ipt-search"] = []scraper.Element{&scrapertest.Element{}}
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)
	defer st.MustClose()
	opts := testOptions(t)
	tracker := session.NewTracker(page, opts.Site.URLs.HomePage, st, opts.Site.AuthFile)
	persister := &memPersister{}
	s := NewSpider(page, opts, tracker, persister)
	assert.Equal(t, "ZHIPIN", s.Name())
	fakeSite(t, s, page, "x1", "x2", "x3")

	res, err := s.Search(context.Background(), criteria)
	require.NoError(t, err)

	assert.Equal(t, []string{"golang"}, res.Keywords)
	assert.Len(t, res.Jobs, 3)
	require.Len(t, res.Details, 3)
	assert.Equal(t, "x2", res.Details[0].JobInfo.EncryptID, "second card is clicked first")
	assert.Len(t, res.Matched, 3)
	assert.NotEmpty(t, res.SessionID)
	assert.Positive(t, persister.saves)
	assert.Equal(t, session.LoggedOut, tracker.State())
	assert.Empty(t, page.Visited, "login check does not navigate")
	assert.Equal(t, 2, page.RouteCount())

	again, err := s.Search(context.Background(), models.UserCriteria{MaxSize: 1})
	require.NoError(t, err)
	assert.NotEqual(t, res.SessionID, again.SessionID)
	assert.Empty(t, again.Jobs, "each search starts a fresh harvest")
	assert.Equal(t, 2, page.RouteCount(), "routes are registered once")
}

func TestSearchOpensCityPage(t *testing.T) {
	page := scrapertest.NewPage()
	opts := testOptions(t)
	opts.CityCode = "101280600"
	s := NewSpider(page, opts, nil, nil)

	_, err := s.Search(context.Background(), models.UserCriteria{})
	require.NoError(t, err)
	assert.Equal(t, []string{opts.Site.URLs.SearchPage + "?city=101280600"}, page.Visited)
}

func TestSearchSkipsKeywordWithoutSearchBox(t *testing.T) {
	page := scrapertest.NewPage()
	s := NewSpider(page, testOptions(t), nil, nil)

	res, err := s.Search(context.Background(), models.UserCriteria{JobNames: []string{"a", "b"}, MaxSize: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Keywords)
	assert.Len(t, page.Shots, 2)
}

func TestSearchCancelled(t *testing.T) {
	page := scrapertest.NewPage()
	page.Elements["input.ipt-search"] = []scraper.Element{&scrapertest.Element{}}
	s := NewSpider(page, testOptions(t), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Search(ctx, criteria)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Keywords)
}

func TestSearchClosedPageReturnsHarvest(t *testing.T) {
	page := scrapertest.NewPage()
	page.Elements["input.ipt-search"] = []scraper.Element{&scrapertest.Element{}}
	s := NewSpider(page, testOptions(t), nil, nil)
	fakeSite(t, s, page, "x1", "x2", "x3")
	cards, _ := page.Locate(jobCardSelector)
	cards[1].(*scrapertest.Element).OnClick = page.Close

	res, err := s.Search(context.Background(), criteria)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 3)
	assert.Empty(t, res.Details)
}

func TestSearchNoPage(t *testing.T) {
	s := NewSpider(nil, testOptions(t), nil, nil)

	_, err := s.Search(context.Background(), criteria)
	assert.ErrorIs(t, err, session.ErrNoPage)
	_, err = s.SearchManual(context.Background(), criteria)
	assert.ErrorIs(t, err, session.ErrNoPage)
}

func TestSearchManual(t *testing.T) {
	page := scrapertest.NewPage()
	page.URLs = []string{"home", "search?query=golang"}
	page.Elements[searchInputSelector] = []scraper.Element{&scrapertest.Element{Value: "  golang "}}
	s := NewSpider(page, testOptions(t), nil, nil)
	fakeSite(t, s, page, "m1", "m2")

	res, err := s.SearchManual(context.Background(), criteria)
	require.NoError(t, err)
	assert.Equal(t, []string{"golang"}, res.Keywords)
	assert.Len(t, res.Jobs, 2)
	assert.Len(t, res.Details, 2)
}

func TestResponsesAfterSearchAreNotHarvested(t *testing.T) {
	page := scrapertest.NewPage()
	page.Elements["input.ipt-search"] = []scraper.Element{&scrapertest.Element{}}
	persister := &memPersister{}
	s := NewSpider(page, testOptions(t), nil, persister)
	fakeSite(t, s, page, "x1", "x2")

	res, err := s.Search(context.Background(), criteria)
	require.NoError(t, err)
	saves := persister.saves
	assert.Nil(t, s.Session())

	d, ok := page.Serve(s.opts.Site.URLs.JobList+"?page=2", scrapertest.JSON(listBody(t, job("late"))))
	require.True(t, ok)
	assert.Equal(t, intercept.Continue, d.Action)
	assert.Equal(t, saves, persister.saves, "a late list must not overwrite the saved result")
	assert.Len(t, res.Jobs, 2)
}

func TestSessionDispatchWithoutRun(t *testing.T) {
	s := NewSpider(scrapertest.NewPage(), testOptions(t), nil, nil)
	d := s.dispatch((*intercept.Interceptor).HandleList)(intercept.Request{URL: "x"}, scrapertest.JSON(`{}`))
	assert.Equal(t, intercept.Continue, d.Action)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.City = "深圳"
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "101280600", opts.CityCode)
	assert.Equal(t, "ZHIPIN", opts.Site.Name)

	cfg.City = "火星"
	_, err = OptionsFromConfig(cfg)
	assert.ErrorIs(t, err, config.ErrUnknownCity)
	assert.Contains(t, fmt.Sprint(err), "火星")
}
