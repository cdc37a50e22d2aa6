package zhipin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/dedup"
	"go-bosszp-automation/internal/filter"
	"go-bosszp-automation/internal/intercept"
	"go-bosszp-automation/internal/models"
	"go-bosszp-automation/internal/scraper"
	"go-bosszp-automation/internal/session"

	"github.com/google/uuid"
)

var (
	ErrSearchBoxNotFound = errors.New("search box not found")
	ErrPageClosed        = errors.New("page closed")
)

const (
	jobCardSelector     = ".card-area .job-name"
	searchInputSelector = ".search-input-box input"

	scrollHeightScript = "() => document.body.scrollHeight"
	scrollBottomScript = "() => window.scrollTo(0, document.body.scrollHeight)"
)

// The home page and the search page use different search boxes.
var searchBoxSelectors = []string{
	"input.ipt-search",
	searchInputSelector,
}

type Options struct {
	Site             config.Site
	CityCode         string
	Pacing           config.Pacing
	URLChangeTimeout time.Duration
	// MaxScrollRounds bounds one ScrollPage call. Zero means unbounded.
	MaxScrollRounds int
	Degrees         map[string][]string
	Exclusions      []string
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	site, err := cfg.SiteConfig()
	if err != nil {
		return Options{}, err
	}
	var cityCode string
	if cfg.City != "" {
		if cityCode, err = config.CityCode(cfg.City); err != nil {
			return Options{}, err
		}
	}
	return Options{
		Site:             site,
		CityCode:         cityCode,
		Pacing:           cfg.Pacing,
		URLChangeTimeout: cfg.URLChangeTimeout,
		MaxScrollRounds:  cfg.MaxScrollRounds,
		Degrees:          cfg.Degrees,
		Exclusions:       cfg.ExcludeKeywords,
	}, nil
}

// Session holds what one search run has harvested.
type Session struct {
	ID          string
	Started     time.Time
	Collector   *intercept.Collector
	Interceptor *intercept.Interceptor
}

func newSession(persister intercept.Persister) *Session {
	collector := intercept.NewCollector()
	return &Session{
		ID:          uuid.NewString(),
		Started:     time.Now(),
		Collector:   collector,
		Interceptor: intercept.New(collector, persister),
	}
}

type Result struct {
	SessionID string
	Keywords  []string
	// Jobs and Details are unique by id, in first-seen order.
	Jobs    []models.JobListItem
	Details []models.JobDetailItem
	// Matched are the details passing the criteria, capped by the last pagination.
	Matched []models.JobDetailItem
}

// Spider drives one zhipin tab. It is not safe for concurrent use.
type Spider struct {
	page      session.Page
	opts      Options
	tracker   *session.Tracker
	persister intercept.Persister

	mu      sync.Mutex
	current *Session
	routed  bool
}

// NewSpider wires a spider to page. persister receives the job list after
// each list response and may be nil.
func NewSpider(page session.Page, opts Options, tracker *session.Tracker, persister intercept.Persister) *Spider {
	return &Spider{page: page, opts: opts, tracker: tracker, persister: persister}
}

func (s *Spider) Name() string {
	return s.opts.Site.Name
}

// Session returns the run in progress, or nil when no search is running.
func (s *Spider) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Spider) matcher(criteria models.UserCriteria) filter.Matcher {
	return filter.NewMatcher(criteria, s.opts.Degrees, s.opts.Exclusions)
}

// matchedJobs is the filtered list harvest, capped by the last pagination.
func (s *Spider) matchedJobs(sess *Session, m filter.Matcher) []models.JobListItem {
	return dedup.FilterJobs(sess.Collector.Jobs(), m, sess.Collector.Pagination().Cap())
}

func (s *Spider) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.page.IsClosed() {
		return ErrPageClosed
	}
	return nil
}

// begin starts a new run and makes sure the endpoints are intercepted. The
// routes are registered once per tab and dispatch to the current run.
func (s *Spider) begin() (*Session, error) {
	if s.page == nil {
		return nil, session.ErrNoPage
	}
	sess := newSession(s.persister)

	s.mu.Lock()
	s.current = sess
	routed := s.routed
	s.routed = true
	s.mu.Unlock()

	if !routed {
		if err := s.page.Route(s.opts.Site.URLs.JobList+"**", s.dispatch((*intercept.Interceptor).HandleList)); err != nil {
			return nil, fmt.Errorf("route job list: %w", err)
		}
		if err := s.page.Route(s.opts.Site.URLs.JobDetail+"**", s.dispatch((*intercept.Interceptor).HandleDetail)); err != nil {
			return nil, fmt.Errorf("route job detail: %w", err)
		}
	}

	log.Printf("🆔 %s session %s started", s.Name(), sess.ID)
	return sess, nil
}

func (s *Spider) dispatch(handle func(*intercept.Interceptor, intercept.Request, intercept.FetchFunc) intercept.Decision) intercept.Handler {
	return func(req intercept.Request, fetch intercept.FetchFunc) intercept.Decision {
		sess := s.Session()
		if sess == nil {
			return intercept.Decision{Action: intercept.Continue}
		}
		return handle(sess.Interceptor, req, fetch)
	}
}

// prepare records the login state without navigating and syncs the auth file.
func (s *Spider) prepare() {
	if s.tracker == nil {
		return
	}
	if _, err := s.tracker.Check(false); err != nil {
		log.Printf("⚠️ Login check failed: %v", err)
		return
	}
	if err := s.tracker.Persist(); err != nil {
		log.Printf("⚠️ %v", err)
	}
}

// Search runs every keyword of criteria in turn. A closed page ends the run
// early with whatever was harvested; a cancelled ctx does too but is reported.
func (s *Spider) Search(ctx context.Context, criteria models.UserCriteria) (*Result, error) {
	sess, err := s.begin()
	if err != nil {
		return nil, err
	}
	s.prepare()

	if s.opts.CityCode != "" {
		if err := s.page.Goto(s.opts.Site.SearchURL(s.opts.CityCode)); err != nil {
			log.Printf("⚠️ Could not open search page: %v", err)
		}
	}

	m := s.matcher(criteria)
	var keywords []string
	var runErr error
	for i, name := range criteria.JobNames {
		index := i + 1
		log.Printf("\n🔑 Processing keyword %d/%d: %q", index, len(criteria.JobNames), name)

		if err := s.SearchJob(ctx, name); err != nil {
			if stopping(err) {
				runErr = err
				break
			}
			log.Printf("  ⚠️ %v", err)
			continue
		}
		keywords = append(keywords, name)

		if err := s.collect(ctx, sess, criteria, m, index); err != nil {
			runErr = err
			break
		}
	}

	return s.finish(sess, m, keywords), ignoreClosed(runErr)
}

// SearchManual lets the user search in the browser. Every time the address
// changes the new results are scrolled and clicked. The run ends when no
// navigation happens within the URL change timeout or the tab is closed.
func (s *Spider) SearchManual(ctx context.Context, criteria models.UserCriteria) (*Result, error) {
	sess, err := s.begin()
	if err != nil {
		return nil, err
	}
	s.prepare()
	log.Println("🖐️ Search in the opened page; close the browser to finish")

	m := s.matcher(criteria)
	var keywords []string
	var runErr error
	current := s.page.URL()
	for index := 1; ; index++ {
		next, changed := s.WaitForURLChange(ctx, current, s.opts.URLChangeTimeout)
		if !changed {
			if err := s.alive(ctx); err != nil {
				runErr = err
			} else {
				log.Println("⏱️ No new search, finishing")
			}
			break
		}
		current = next

		keyword, err := s.SearchKeyword()
		if err != nil {
			log.Printf("  ⚠️ Could not read search keyword: %v", err)
		} else if keyword != "" && !slices.Contains(keywords, keyword) {
			keywords = append(keywords, keyword)
		}
		log.Printf("\n🔑 Search %d: %q", index, keyword)

		if err := s.collect(ctx, sess, criteria, m, index); err != nil {
			runErr = err
			break
		}
		current = s.page.URL()
	}

	return s.finish(sess, m, keywords), ignoreClosed(runErr)
}

// collect scrolls the results of the index-th search and opens the matching cards.
func (s *Spider) collect(ctx context.Context, sess *Session, criteria models.UserCriteria, m filter.Matcher, index int) error {
	if err := s.ScrollPage(ctx, sess, criteria, index); err != nil {
		if stopping(err) {
			return err
		}
		log.Printf("  ⚠️ Scroll failed: %v", err)
	}
	if err := s.opts.Pacing.Settle.Wait(ctx); err != nil {
		return err
	}
	if err := s.ClickAllJobs(ctx, s.matchedJobs(sess, m)); err != nil {
		if stopping(err) {
			return err
		}
		log.Printf("  ⚠️ Click failed: %v", err)
	}
	return nil
}

// end detaches sess from the routes and stops its write-through, so later
// responses cannot overwrite the files written from the result.
func (s *Spider) end(sess *Session) {
	s.mu.Lock()
	if s.current == sess {
		s.current = nil
	}
	s.mu.Unlock()
	sess.Interceptor.Stop()
}

func (s *Spider) finish(sess *Session, m filter.Matcher, keywords []string) *Result {
	s.end(sess)
	jobs := sess.Collector.Jobs()
	details := sess.Collector.Details()
	log.Printf("🧹 Filtering: %d list items, %d details before dedup", len(jobs), len(details))

	res := &Result{
		SessionID: sess.ID,
		Keywords:  keywords,
		Jobs:      dedup.UniqueJobs(jobs),
		Details:   dedup.UniqueDetails(details),
		Matched:   dedup.FilterDetails(details, m, sess.Collector.Pagination().Cap()),
	}
	log.Printf("✅ Done: %d unique jobs, %d unique details, %d matched (%s)",
		len(res.Jobs), len(res.Details), len(res.Matched), time.Since(sess.Started).Round(time.Second))
	return res
}

// SearchJob types name into whichever search box the current page has.
func (s *Spider) SearchJob(ctx context.Context, name string) error {
	if err := s.alive(ctx); err != nil {
		return err
	}
	log.Printf("🔎 Searching %q on %s", name, s.page.URL())

	for _, selector := range searchBoxSelectors {
		boxes, err := s.page.Locate(selector)
		if err != nil {
			log.Printf("  ⚠️ Locate %s: %v", selector, err)
			continue
		}
		if len(boxes) == 0 {
			continue
		}
		box := boxes[0]
		if err := box.Fill(name); err != nil {
			return fmt.Errorf("fill search box: %w", err)
		}
		if err := box.Press("Enter"); err != nil {
			return fmt.Errorf("submit search: %w", err)
		}
		if err := s.page.WaitForLoadState(scraper.LoadStateLoad); err != nil {
			log.Printf("  ⚠️ Search page did not finish loading: %v", err)
		}
		return s.opts.Pacing.Settle.Wait(ctx)
	}

	if shot, ok := s.page.(scraper.Screenshotter); ok {
		shot.CaptureAndLog("search_box_missing", "Search box not found")
	}
	return fmt.Errorf("%w: %s", ErrSearchBoxNotFound, name)
}

// SearchKeyword reads the query from the search page's box.
func (s *Spider) SearchKeyword() (string, error) {
	boxes, err := s.page.Locate(searchInputSelector)
	if err != nil {
		return "", err
	}
	if len(boxes) == 0 {
		return "", nil
	}
	value, err := boxes[0].InputValue()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// ScrollPage scrolls to the bottom until the filtered harvest reaches
// criteria.MaxSize*index or the page stops growing.
func (s *Spider) ScrollPage(ctx context.Context, sess *Session, criteria models.UserCriteria, index int) error {
	target := criteria.MaxSize * index
	m := s.matcher(criteria)
	log.Printf("📜 Scrolling, target %d jobs", target)

	lastHeight := 0
	for rounds := 0; len(s.matchedJobs(sess, m)) < target; rounds++ {
		if s.opts.MaxScrollRounds > 0 && rounds >= s.opts.MaxScrollRounds {
			log.Printf("  ⚠️ Stopped after %d scroll rounds", rounds)
			break
		}
		if err := s.alive(ctx); err != nil {
			return err
		}

		v, err := s.page.Evaluate(scrollHeightScript)
		if err != nil {
			return fmt.Errorf("read page height: %w", err)
		}
		height := toInt(v)
		if height == lastHeight {
			log.Println("  ⚠️ Page height unchanged, reached the bottom")
			break
		}
		lastHeight = height

		if _, err := s.page.Evaluate(scrollBottomScript); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if err := s.page.WaitForLoadState(scraper.LoadStateNetworkIdle); err != nil {
			log.Printf("  ⚠️ Network not idle: %v", err)
		}
		if err := s.opts.Pacing.Scroll.Wait(ctx); err != nil {
			return err
		}
	}

	log.Printf("  📄 %d matching jobs so far", len(s.matchedJobs(sess, m)))
	return nil
}

// ClickAllJobs opens the detail of every visible card whose job is in
// matched so the detail endpoint fires for it.
func (s *Spider) ClickAllJobs(ctx context.Context, matched []models.JobListItem) error {
	if err := s.alive(ctx); err != nil {
		return err
	}
	cards, err := s.page.Locate(jobCardSelector)
	if err != nil {
		return fmt.Errorf("locate job cards: %w", err)
	}
	if len(cards) < 2 {
		log.Println("  ⚠️ No job cards found")
		return nil
	}

	ids := dedup.IDSet(matched)
	var targets []scraper.Element
	for _, card := range cards {
		href, err := card.GetAttribute("href")
		if err != nil {
			log.Printf("  ⚠️ Could not read card link: %v", err)
			continue
		}
		if _, ok := ids[jobIDFromHref(href)]; ok {
			targets = append(targets, card)
		}
	}
	if len(targets) < 2 {
		log.Println("  ⚠️ No matching job cards found")
		return nil
	}

	targets = clickOrder(targets)
	log.Printf("  🖱️ Opening %d job details", len(targets))
	for i, card := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.page.IsClosed() {
			log.Println("  ⚠️ Page closed, stop clicking")
			return ErrPageClosed
		}
		if err := card.Click(); err != nil {
			log.Printf("  ⚠️ Click %d failed: %v", i+1, err)
			continue
		}
		if err := s.page.WaitForLoadState(scraper.LoadStateLoad); err != nil {
			log.Printf("  ⚠️ Detail %d did not load: %v", i+1, err)
			continue
		}
		if err := s.opts.Pacing.Click.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WaitForURLChange polls the address until it differs from initial. It
// reports false on timeout, a closed page or a cancelled ctx.
func (s *Spider) WaitForURLChange(ctx context.Context, initial string, timeout time.Duration) (string, bool) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for !s.page.IsClosed() {
		if current := s.page.URL(); current != initial {
			log.Printf("🔗 Address changed to %s", current)
			return current, true
		}
		if err := s.opts.Pacing.Poll.Wait(ctx); err != nil {
			return "", false
		}
		if time.Now().After(deadline) {
			return "", false
		}
	}
	return "", false
}

// jobIDFromHref takes "/job_detail/<id>.html?..." to "<id>".
func jobIDFromHref(href string) string {
	last := href[strings.LastIndex(href, "/")+1:]
	if i := strings.Index(last, "."); i >= 0 {
		last = last[:i]
	}
	return last
}

// clickOrder puts the second card first. The page preloads the first card's
// detail, so clicking it first would not fire the detail request.
func clickOrder(cards []scraper.Element) []scraper.Element {
	if len(cards) < 2 {
		return cards
	}
	ordered := make([]scraper.Element, 0, len(cards))
	ordered = append(ordered, cards[1], cards[0])
	return append(ordered, cards[2:]...)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func stopping(err error) bool {
	return errors.Is(err, ErrPageClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func ignoreClosed(err error) error {
	if errors.Is(err, ErrPageClosed) {
		log.Println("⚠️ Page closed, returning what was collected")
		return nil
	}
	return err
}
