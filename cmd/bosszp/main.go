// Package main is the bosszp command line: it drives a zhipin.com browser
// session, collects the postings matching the saved criteria and renders them
// into an LLM prompt.
package main

import (
	"fmt"
	"os"

	"go-bosszp-automation/internal/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bosszp",
	Short: "BOSS直聘 job collection agent",
	Long: "bosszp searches zhipin.com in a real browser, harvests the job list and job detail " +
		"responses, filters them by degree, salary, experience and title, and renders the " +
		"matches into prompt.txt for an LLM.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
