package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voiceorder/internal/ordering"
	"voiceorder/internal/session"
)

// resolveCmd resolves order text without touching a session
var resolveCmd = &cobra.Command{
	Use:   "resolve [text]",
	Short: "Resolve order text into priced lines",
	Long: `Splits, parses and resolves an utterance against the catalog and prints
the resulting order lines, per-span failures and any packaging choice.

Example:
  orderbot resolve "아이스 아메리카노 두 잔하고 치즈케이크 하나 포장"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

type resolveOutput struct {
	Lines      []session.OrderLine    `json:"lines"`
	Failures   []ordering.ItemFailure `json:"failures,omitempty"`
	TotalPrice int                    `json:"total_price"`
	Packaging  string                 `json:"packaging,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		return resolveText(ctx, a, strings.Join(args, " "))
	})
}

func resolveText(ctx context.Context, a *app, text string) error {
	cleaned, pkg, captured := a.packaging.StripKeywords(text)
	lines, failures, err := a.service.ResolveText(ctx, cleaned)

	out := resolveOutput{Lines: lines, Failures: failures}
	_, out.TotalPrice = ordering.Totals(lines)
	if captured {
		out.Packaging = string(pkg)
	}

	if jsonOutput {
		if perr := printJSON(os.Stdout, out); perr != nil {
			return perr
		}
		return err
	}
	for _, l := range lines {
		fmt.Printf("#%-3d %-20s x%-3d %7d원  (%q)\n", l.CatalogID, l.DisplayName(), l.Quantity, l.Subtotal(), l.OriginalText)
	}
	for _, f := range failures {
		fmt.Printf("!    %s\n", f.Error())
	}
	fmt.Printf("Total: %d원\n", out.TotalPrice)
	if captured {
		fmt.Printf("Packaging: %s\n", pkg.Label())
	}
	return err
}

// packagingCmd resolves a packaging answer
var packagingCmd = &cobra.Command{
	Use:   "packaging [text]",
	Short: "Resolve a takeout / dine-in answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			m := a.packaging.Resolve(ctx, strings.Join(args, " "))
			if jsonOutput {
				return printJSON(os.Stdout, m)
			}
			if !m.OK() {
				fmt.Printf("unresolved (%s)\n", m.Outcome)
				return m.Cause
			}
			fmt.Printf("%s via %s (score %.3f)\n", m.Type.Label(), m.Method, m.Score)
			return nil
		})
	},
}

func init() {
	resolveCmd.AddCommand(packagingCmd)
}
