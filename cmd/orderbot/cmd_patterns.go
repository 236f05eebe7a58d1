package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"voiceorder/internal/patterns"
)

// patternsCmd inspects the locale pattern files
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect, reload and scaffold locale pattern files",
}

var patternsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active pattern tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, err := patterns.NewCache(cfg.Patterns.Dir)
		if err != nil {
			return err
		}
		c := pc.Current().Config
		if jsonOutput {
			return printJSON(os.Stdout, c)
		}
		words := make([]string, len(c.Numerals))
		for i, n := range c.Numerals {
			words[i] = fmt.Sprintf("%s=%d", n.Word, n.Value)
		}
		fmt.Printf("Directory:    %s\n", cfg.Patterns.Dir)
		fmt.Printf("Numerals:     %s\n", strings.Join(words, " "))
		fmt.Printf("Units:        %s\n", strings.Join(c.Units, " "))
		fmt.Printf("Separators:   %s\n", strings.Join(c.Separators, " | "))
		fmt.Printf("Cold:         %s\n", strings.Join(c.ColdExpressions, ", "))
		fmt.Printf("Hot:          %s\n", strings.Join(c.HotExpressions, ", "))
		fmt.Printf("Takeout:      %s\n", strings.Join(c.TakeoutKeywords, ", "))
		fmt.Printf("Dine-in:      %s\n", strings.Join(c.DineInKeywords, ", "))
		t := c.Thresholds
		fmt.Printf("Thresholds:   menu=%.2f packaging=%.2f temperature=%.2f popular_bonus=%.2f vector_weight=%.2f\n",
			t.Menu, t.Packaging, t.Temperature, t.PopularBonus, t.VectorWeight)
		return nil
	},
}

var patternsReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Load the pattern files and report which ones fell back to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			before := a.embeddings.Stats().Entries
			report, err := a.patterns.Reload()
			if err != nil {
				return err
			}
			printReport(report)
			fmt.Printf("embedding memo cleared (%d entries)\n", before)
			return nil
		})
	},
}

func printReport(report *patterns.LoadReport) {
	names := make([]string, 0, len(report.Sources))
	for name := range report.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-28s %s\n", name, report.Sources[name])
	}
	for _, w := range report.Warnings {
		fmt.Printf("warning: %v\n", w)
	}
}

var patternsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in tables as editable pattern files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := patterns.WriteDefaults(cfg.Patterns.Dir); err != nil {
			return err
		}
		fmt.Printf("Wrote %s to %s\n", strings.Join(patterns.Files, ", "), cfg.Patterns.Dir)
		return nil
	},
}

func init() {
	patternsCmd.AddCommand(patternsShowCmd)
	patternsCmd.AddCommand(patternsReloadCmd)
	patternsCmd.AddCommand(patternsInitCmd)
}
