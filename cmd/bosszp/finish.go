package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-bosszp-automation/internal/ai"
	"go-bosszp-automation/internal/database"
	"go-bosszp-automation/internal/dedup"
	"go-bosszp-automation/internal/models"
	"go-bosszp-automation/internal/prompt"
	"go-bosszp-automation/internal/reporter"
	"go-bosszp-automation/internal/scraper/zhipin"
	"go-bosszp-automation/internal/store"

	"golang.org/x/sync/errgroup"
)

const previewRunes = 300

// archive is the part of the SQLite repository a finished run writes to.
type archive interface {
	KnownIDs(ctx context.Context) (*dedup.Seen, error)
	SaveDetails(ctx context.Context, runID string, details []models.JobDetailItem, matched map[string]struct{}) (int, error)
	SaveRun(ctx context.Context, run database.Run) error
	CountJobs(ctx context.Context) (int, error)
}

type notifier interface {
	Report(ctx context.Context, s reporter.Summary, matched []models.JobDetailItem) error
}

// finisher writes out a search result. archive, notifier and analyst are optional.
type finisher struct {
	store    *store.Store
	archive  archive
	notifier notifier
	analyst  ai.Client
}

func (f *finisher) Finish(ctx context.Context, res *zhipin.Result, criteria models.UserCriteria, loggedIn bool, started time.Time) error {
	if err := f.store.SaveJobs(res.Jobs); err != nil {
		return err
	}
	if err := f.store.SaveDetails(res.Details); err != nil {
		return err
	}
	log.Printf("💾 Saved %d jobs and %d details to %s", len(res.Jobs), len(res.Details), f.store.Dir())

	text, err := prompt.Render(res.Matched, res.Keywords, criteria)
	if err != nil {
		return err
	}
	if err := f.store.WriteText(store.PromptFile, text); err != nil {
		return err
	}
	log.Printf("📝 Prompt written to %s:\n%s", f.store.Path(store.PromptFile), prompt.Preview(text, previewRunes))

	summary := reporter.Summary{
		SessionID: res.SessionID,
		Keywords:  res.Keywords,
		Criteria:  criteria,
		LoggedIn:  loggedIn,
		Jobs:      len(res.Jobs),
		Details:   len(res.Details),
		Matched:   len(res.Matched),
		New:       len(res.Matched),
		Duration:  time.Since(started),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := f.archiveRun(gctx, res, criteria, started, &summary); err != nil {
			return err
		}
		if f.notifier == nil {
			return nil
		}
		if err := f.notifier.Report(gctx, summary, res.Matched); err != nil {
			return fmt.Errorf("telegram report: %w", err)
		}
		log.Println("📨 Telegram summary sent")
		return nil
	})
	g.Go(func() error {
		return f.analyze(gctx, text)
	})
	return g.Wait()
}

// archiveRun stores the run and its details; summary.New becomes the number
// of matched postings no earlier run has seen.
func (f *finisher) archiveRun(ctx context.Context, res *zhipin.Result, criteria models.UserCriteria, started time.Time, summary *reporter.Summary) error {
	if f.archive == nil {
		return nil
	}

	known, err := f.archive.KnownIDs(ctx)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	matched := make(map[string]struct{}, len(res.Matched))
	summary.New = 0
	for _, detail := range res.Matched {
		id := detail.JobInfo.EncryptID
		matched[id] = struct{}{}
		if !known.IsSeen(id) {
			summary.New++
		}
	}

	created, err := f.archive.SaveDetails(ctx, res.SessionID, res.Details, matched)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	err = f.archive.SaveRun(ctx, database.Run{
		ID:         res.SessionID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Keywords:   res.Keywords,
		Criteria:   criteria,
		Jobs:       len(res.Jobs),
		Details:    len(res.Details),
		Matched:    len(res.Matched),
	})
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	total, err := f.archive.CountJobs(ctx)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	log.Printf("🗄️ Archived run %s: %d new postings, %d new matches, %d postings archived (%d before this run)",
		res.SessionID, created, summary.New, total, known.Len())
	return nil
}

func (f *finisher) analyze(ctx context.Context, text string) error {
	if f.analyst == nil {
		return nil
	}
	log.Println("🤖 Sending prompt for analysis...")
	analysis, err := f.analyst.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := f.store.WriteText(store.AnalysisFile, analysis); err != nil {
		return err
	}
	log.Printf("✅ Analysis written to %s", f.store.Path(store.AnalysisFile))
	return nil
}
