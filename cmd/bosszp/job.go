package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-bosszp-automation/internal/database"
	"go-bosszp-automation/internal/prompt"

	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job <encryptId>...",
	Short: "Show archived postings and when they were seen",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runJob,
}

var ErrNoArchive = errors.New("archive is not configured or could not be opened; check archive_path")

func init() {
	rootCmd.AddCommand(jobCmd)
}

func runJob(_ *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := a.runContext()
	defer cancel()

	repo := a.openArchive(ctx)
	if repo == nil {
		return ErrNoArchive
	}
	defer repo.Close()

	for _, id := range args {
		text, err := describeJob(ctx, repo, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, text)
	}
	return nil
}

type jobLookup interface {
	GetJob(ctx context.Context, encryptID string) (*database.ArchivedJob, error)
}

// describeJob renders one archived posting with its sighting history.
func describeJob(ctx context.Context, repo jobLookup, id string) (string, error) {
	job, err := repo.GetJob(ctx, id)
	if err != nil {
		return "", err
	}
	body, err := prompt.RenderJob(job.Detail)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🆔 %s  %s @ %s\n", job.EncryptID, job.JobName, job.BrandName)
	fmt.Fprintf(&b, "👀 seen %d times, first %s (run %s), last %s (run %s)\n",
		job.TimesSeen, job.FirstSeenAt.Format(time.DateTime), job.FirstRunID,
		job.LastSeenAt.Format(time.DateTime), job.LastRunID)
	if job.Matched {
		b.WriteString("✅ matched the criteria of its last run\n")
	}
	b.WriteString(body)
	return b.String(), nil
}
