package main

import (
	"errors"

	"go-bosszp-automation/internal/store"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Send prompt.txt to the LLM and write analysis.md",
	RunE:  runAnalyze,
}

var ErrNoPrompt = errors.New("prompt.txt is empty or missing; run search or prompt first")

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	analyst := a.newAnalyst()
	if analyst == nil {
		return errors.New("set GROQ_API_KEY or ai.api_key to analyze")
	}

	data, err := a.store.ReadRaw(store.PromptFile)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNoPrompt
	}

	ctx, cancel := a.runContext()
	defer cancel()

	f := &finisher{store: a.store, analyst: analyst}
	return f.analyze(ctx, string(data))
}
