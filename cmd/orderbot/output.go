package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"voiceorder/internal/ordering"
	"voiceorder/internal/session"
)

var jsonOutput bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printSession(s *session.Session) error {
	if jsonOutput {
		return printJSON(os.Stdout, s)
	}
	fmt.Printf("Session:  %s\n", s.ID)
	fmt.Printf("Step:     %s (v%d)\n", s.Step, s.Version)
	fmt.Printf("Expires:  %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	if len(s.Data.Orders) > 0 {
		fmt.Println("Orders:")
		for _, l := range s.Data.Orders {
			fmt.Printf("  #%-3d %-20s x%-3d %7d원\n", l.CatalogID, l.DisplayName(), l.Quantity, l.Subtotal())
		}
		fmt.Printf("Total:    %d items, %d원\n", s.Data.TotalItems, s.Data.TotalPrice)
	}
	if s.Data.PackagingType != "" {
		fmt.Printf("Packing:  %s\n", s.Data.PackagingType.Label())
	}
	if s.Data.PhoneNumber != "" {
		fmt.Printf("Phone:    %s\n", s.Data.PhoneNumber)
	}
	if s.Data.OrderID != 0 {
		fmt.Printf("Order ID: %d\n", s.Data.OrderID)
	}
	return nil
}

func printResult(res *ordering.Result) error {
	if jsonOutput {
		return printJSON(os.Stdout, res)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
	}
	if res.Session != nil {
		fmt.Println(strings.Repeat("-", 40))
		return printSession(res.Session)
	}
	return nil
}
