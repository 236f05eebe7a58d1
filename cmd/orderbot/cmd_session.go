package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voiceorder/internal/session"
	"voiceorder/internal/store"
)

// sessionCmd manages conversation sessions
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create, inspect and manage sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.sessions.Create(ctx)
			if err != nil {
				return err
			}
			return printSession(s)
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.sessions.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printSession(s)
		})
	},
}

var sessionExtendCmd = &cobra.Command{
	Use:   "extend [session-id]",
	Short: "Refresh a session's TTL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.sessions.Extend(ctx, args[0])
			if err != nil {
				return err
			}
			return printSession(s)
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.sessions.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted session %s\n", args[0])
			return nil
		})
	},
}

var sessionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count live sessions per step",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			st, err := a.sessions.Stats(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, st)
			}
			fmt.Printf("Live sessions: %d\n", st.Total)
			for _, step := range session.Steps {
				fmt.Printf("  %-12s %d\n", step, st.ByStep[step])
			}
			return nil
		})
	},
}

var sessionPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions from the SQLite store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ss, ok := a.sessions.Store().(*store.SessionStore)
			if !ok {
				return fmt.Errorf("purge needs the sqlite session backend (have %s)", a.cfg.Store.SessionBackend)
			}
			n, err := ss.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Purged %d expired sessions\n", n)
			return nil
		})
	},
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionExtendCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
	sessionCmd.AddCommand(sessionStatsCmd)
	sessionCmd.AddCommand(sessionPurgeCmd)
}

// withApp builds the app for the duration of fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
