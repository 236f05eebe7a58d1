package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voiceorder/internal/catalog"
	"voiceorder/internal/store"
)

var seedFile string

// catalogCmd manages the menu and packaging indexes
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Seed and query the catalog index",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Embed and upsert menu entries and packaging phrases",
	Long: `Embeds every menu entry and packaging phrase with the configured engine
and upserts them into the index. Without --file the built-in coffee-shop menu
is used. Seed files are YAML or JSON:

  menu:
    - {id: 1, name: 아메리카노, price: 4000, popular: true, temp: hot}
  packaging:
    - {id: 1, phrase: 포장 테이크아웃, type: takeout}`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := catalog.DefaultSeed()
		if seedFile != "" {
			var err error
			if seed, err = catalog.LoadSeed(seedFile); err != nil {
				return err
			}
		}
		return withApp(func(ctx context.Context, a *app) error {
			if err := catalog.Seed(ctx, a.index, a.embeddings, seed); err != nil {
				return err
			}
			fmt.Printf("Seeded %d menu entries and %d packaging phrases (%s)\n",
				len(seed.Menu), len(seed.Packaging), a.embeddings.Name())
			if ci, ok := a.index.(*store.CatalogIndex); ok {
				menu, pkg, err := ci.Counts(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Index now holds %d menu entries and %d packaging phrases\n", menu, pkg)
			}
			return nil
		})
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Show ranked menu candidates for a span",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			m := a.menu.Resolve(ctx, strings.Join(args, " "))
			if jsonOutput {
				return printJSON(os.Stdout, m)
			}
			if m.Cause != nil {
				return m.Cause
			}
			fmt.Printf("Query %q", m.Query)
			if m.TemperatureDetected {
				fmt.Printf(" (temp %s)", m.Temperature)
			}
			fmt.Printf(": %s\n", m.Outcome)
			for i, c := range m.Candidates {
				marker := " "
				if m.OK() && c.Entry.ID == m.Entry.ID {
					marker = "*"
				}
				fmt.Printf("%s %d. #%-3d %-20s final=%.3f vector=%.3f fuzzy=%.3f\n",
					marker, i+1, c.Entry.ID, c.Entry.DisplayName(), c.Final, c.Score.Vector, c.Score.Fuzzy)
			}
			return nil
		})
	},
}

var catalogVariantsCmd = &cobra.Command{
	Use:   "variants [name]",
	Short: "List every temperature variant of a menu item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			entries, err := a.index.MenuByName(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(os.Stdout, entries)
			}
			if len(entries) == 0 {
				fmt.Println("no such item")
			}
			for _, e := range entries {
				fmt.Printf("#%-3d %-20s %6d원 %s\n", e.ID, e.DisplayName(), e.Price, e.Temperature)
			}
			return nil
		})
	},
}

func init() {
	catalogSeedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed file (YAML or JSON)")
	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogVariantsCmd)
}
