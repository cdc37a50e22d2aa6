package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/input"
	"go-bosszp-automation/internal/models"
	"go-bosszp-automation/internal/reporter"
	"go-bosszp-automation/internal/scraper/zhipin"
	"go-bosszp-automation/internal/store"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the saved job keywords and collect matching postings",
	Long: "Opens zhipin.com, searches every job keyword, scrolls the results and opens the " +
		"matching postings. Results go to joblist.json, jobdetail.json, prompt.txt and the archive.",
	RunE: runSearch,
}

var (
	searchManual    bool
	searchNoInput   bool
	searchNoAnalyze bool
)

// ErrNoCriteria means a non-interactive run found no saved criteria.
var ErrNoCriteria = errors.New("no saved criteria; run interactively once or write user_input.json")

func init() {
	searchCmd.Flags().BoolVar(&searchManual, "manual", false, "Search by hand in the browser; every new result page is collected")
	searchCmd.Flags().BoolVar(&searchNoInput, "no-input", false, "Do not ask questions; reuse user_input.json")
	searchCmd.Flags().BoolVar(&searchNoAnalyze, "no-analyze", false, "Skip the LLM analysis even when an API key is set")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := prompter(searchNoInput)
	criteria, err := resolveCriteria(a.store, p, choicesFromConfig(a.cfg))
	if err != nil {
		return err
	}
	log.Printf("🎯 Criteria: %s | %s | %s years | %v (max %d)",
		criteria.Degree, criteria.Salary, criteria.Experience, criteria.JobNames, criteria.MaxSize)

	ctx, cancel := a.runContext()
	defer cancel()

	bs, err := a.openBrowser(a.cfg.Headless && !searchManual)
	if err != nil {
		return err
	}
	defer bs.Close()

	state, err := bs.tracker.Check(true)
	if err != nil {
		return err
	}
	if !bs.tracker.LoggedIn() {
		log.Printf("⚠️ Not logged in (%s): guests only see about %d postings per search", state, a.cfg.GuestMaxSize)
		if p != nil {
			ok, err := p.Confirm("当前未登录, 是否继续搜索(请在页面完成登录，登录后按回车)?", true)
			if err != nil {
				return err
			}
			if !ok {
				log.Println("👋 Search cancelled")
				return nil
			}
			if _, err := bs.tracker.Check(false); err != nil {
				return err
			}
		}
	}
	if !bs.tracker.LoggedIn() {
		criteria = guestCriteria(criteria, a.cfg.GuestMaxSize)
	}

	opts, err := zhipin.OptionsFromConfig(a.cfg)
	if err != nil {
		return err
	}
	spider := zhipin.NewSpider(bs.page, opts, bs.tracker, a.store)

	started := time.Now()
	var res *zhipin.Result
	var runErr error
	if searchManual {
		res, runErr = spider.SearchManual(ctx, criteria)
	} else {
		res, runErr = spider.Search(ctx, criteria)
	}
	notify := a.newNotifier()
	if res == nil {
		reportFailure(notify, runErr)
		return runErr
	}
	if runErr != nil {
		log.Printf("⚠️ Search stopped early: %v (keeping %d details)", runErr, len(res.Details))
	}

	// Finishing must not be cut short by the interrupt that ended the search.
	finishCtx := context.WithoutCancel(ctx)
	f := &finisher{store: a.store}
	if repo := a.openArchive(finishCtx); repo != nil {
		defer repo.Close()
		f.archive = repo
	}
	if notify != nil {
		f.notifier = notify
	}
	if !searchNoAnalyze {
		f.analyst = a.newAnalyst()
	}
	if err := f.Finish(finishCtx, res, criteria, bs.tracker.LoggedIn(), started); err != nil {
		reportFailure(notify, err)
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// resolveCriteria reuses user_input.json as defaults and asks for the rest.
// With no prompter the saved criteria must already be valid.
func resolveCriteria(st *store.Store, p input.Prompter, choices input.Choices) (models.UserCriteria, error) {
	prev, found, err := st.LoadCriteria()
	if err != nil {
		return models.UserCriteria{}, err
	}

	if p == nil {
		if !found {
			return models.UserCriteria{}, ErrNoCriteria
		}
		if err := prev.Validate(); err != nil {
			return models.UserCriteria{}, fmt.Errorf("invalid %s: %w", store.UserInputFile, err)
		}
		return prev, nil
	}

	criteria, err := input.CollectCriteria(p, prev, choices)
	if err != nil {
		return models.UserCriteria{}, err
	}
	if err := st.SaveCriteria(criteria); err != nil {
		return models.UserCriteria{}, err
	}
	return criteria, nil
}

func choicesFromConfig(cfg *config.Config) input.Choices {
	return input.Choices{Degrees: config.DegreeChoices, Salaries: cfg.SalaryChoices}
}

// guestCriteria lowers the per keyword target to what a guest can see.
func guestCriteria(c models.UserCriteria, guestMax int) models.UserCriteria {
	if guestMax > 0 && c.MaxSize > guestMax {
		log.Printf("⚠️ Max size lowered from %d to %d for guest search", c.MaxSize, guestMax)
		c.MaxSize = guestMax
	}
	return c
}

func reportFailure(tg *reporter.TelegramReporter, err error) {
	if tg == nil || err == nil {
		return
	}
	if sendErr := tg.SendError(context.Background(), err); sendErr != nil {
		log.Printf("⚠️ Failed to send error to telegram: %v", sendErr)
	}
}
