package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go-bosszp-automation/internal/session"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a browser, wait for you to log in and save the session",
	Long:  "Opens zhipin.com in a visible browser. Once the header shows your username the session is saved to the auth file reused by search.",
	RunE:  runLogin,
}

var (
	loginTimeout time.Duration
	loginPoll    time.Duration
)

var ErrLoginTimeout = errors.New("timed out waiting for login")

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "How long to wait for the login")
	loginCmd.Flags().DurationVar(&loginPoll, "poll", 3*time.Second, "How often to check the login state")

	rootCmd.AddCommand(loginCmd)
}

func runLogin(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := a.runContext()
	defer cancel()

	bs, err := a.openBrowser(false)
	if err != nil {
		return err
	}
	defer bs.Close()

	if _, err := bs.tracker.Check(true); err != nil {
		return err
	}
	if !bs.tracker.LoggedIn() {
		log.Printf("🔑 Log in in the opened browser (waiting up to %s)", loginTimeout)
		if err := waitForLogin(ctx, bs.tracker, loginTimeout, loginPoll); err != nil {
			return err
		}
	}
	return bs.tracker.Persist()
}

type loginChecker interface {
	Check(navigate bool) (session.State, error)
	LoggedIn() bool
}

// waitForLogin polls the tracker until it reports a login, the timeout passes
// or ctx is done.
func waitForLogin(ctx context.Context, t loginChecker, timeout, poll time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrLoginTimeout, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := t.Check(false); err != nil {
				return err
			}
			if t.LoggedIn() {
				log.Println("✅ Logged in")
				return nil
			}
		}
	}
}
