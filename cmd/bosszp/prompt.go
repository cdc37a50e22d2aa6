package main

import (
	"fmt"
	"log"

	"go-bosszp-automation/internal/config"
	"go-bosszp-automation/internal/dedup"
	"go-bosszp-automation/internal/filter"
	"go-bosszp-automation/internal/prompt"
	"go-bosszp-automation/internal/store"

	"github.com/spf13/cobra"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Re-render prompt.txt from the saved job details",
	Long:  "Filters jobdetail.json with the criteria in user_input.json and writes the matches to prompt.txt without opening a browser.",
	RunE:  runPrompt,
}

var promptLimit int

func init() {
	promptCmd.Flags().IntVarP(&promptLimit, "limit", "n", 0, "Render at most n postings (0 = all matches)")

	rootCmd.AddCommand(promptCmd)
}

func runPrompt(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	text, matched, err := renderSaved(a.store, a.cfg, promptLimit)
	if err != nil {
		return err
	}
	if err := a.store.WriteText(store.PromptFile, text); err != nil {
		return err
	}
	log.Printf("📝 %d postings rendered to %s:\n%s", matched, a.store.Path(store.PromptFile), prompt.Preview(text, previewRunes))
	return nil
}

// renderSaved filters the stored details with the stored criteria.
func renderSaved(st *store.Store, cfg *config.Config, limit int) (string, int, error) {
	criteria, found, err := st.LoadCriteria()
	if err != nil {
		return "", 0, err
	}
	if !found {
		return "", 0, ErrNoCriteria
	}
	details, err := st.LoadDetails()
	if err != nil {
		return "", 0, err
	}

	m := filter.NewMatcher(criteria, cfg.Degrees, cfg.ExcludeKeywords)
	matched := dedup.FilterDetails(details, m, limit)
	log.Printf("🧹 %d of %d details match", len(matched), len(details))

	text, err := prompt.Render(matched, criteria.JobNames, criteria)
	if err != nil {
		return "", 0, fmt.Errorf("render prompt: %w", err)
	}
	return text, len(matched), nil
}
