package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voiceorder/internal/catalog"
	"voiceorder/internal/ordering"
)

// orderCmd advances a session by one conversational turn
var orderCmd = &cobra.Command{
	Use:   "order [session-id] [text]",
	Short: "Send one utterance to a session",
	Long: `Routes the text to whatever the session's step expects: the first
order, more items or a packaging answer, the phone question, or the number.

Examples:
  orderbot order 6f1c... "아메리카노 2개 포장"
  orderbot order 6f1c... 네
  orderbot order 6f1c... 010-1234-5678`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return callService(func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error) {
			return svc.Handle(ctx, args[0], text)
		})
	},
}

var orderRemoveCmd = &cobra.Command{
	Use:   "remove [session-id] [menu]",
	Short: "Remove an item from the order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args[1:], " ")
		return callService(func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error) {
			return svc.RemoveItem(ctx, args[0], name)
		})
	},
}

var orderTempCmd = &cobra.Command{
	Use:   "temp [session-id] [hot|ice] [menu]",
	Short: "Switch an item to another temperature",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		temp, err := catalog.ParseTemperature(args[1])
		if err != nil {
			return err
		}
		name := strings.Join(args[2:], " ")
		return callService(func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error) {
			return svc.UpdateTemperature(ctx, args[0], name, temp)
		})
	},
}

var orderSetCmd = &cobra.Command{
	Use:   "set [session-id] [menu=qty]...",
	Short: "Replace the whole order",
	Long: `Replaces every line of the order and prints what changed.

Example:
  orderbot order set 6f1c... 아메리카노=2 "아이스 카페라떼=1"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := parseItemArgs(args[1:])
		if err != nil {
			return err
		}
		return callService(func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error) {
			return svc.ReplaceOrders(ctx, args[0], items)
		})
	},
}

var orderRetryCmd = &cobra.Command{
	Use:   "retry [session-id]",
	Short: "Go back to the packaging question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callService(func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error) {
			return svc.Retry(ctx, args[0])
		})
	},
}

func init() {
	orderCmd.AddCommand(orderRemoveCmd)
	orderCmd.AddCommand(orderTempCmd)
	orderCmd.AddCommand(orderSetCmd)
	orderCmd.AddCommand(orderRetryCmd)
}

func parseItemArgs(args []string) ([]ordering.ItemRequest, error) {
	items := make([]ordering.ItemRequest, 0, len(args))
	for _, arg := range args {
		name, qty, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected menu=qty, got %q", arg)
		}
		var n int
		if _, err := fmt.Sscanf(qty, "%d", &n); err != nil {
			return nil, fmt.Errorf("bad quantity in %q: %w", arg, err)
		}
		items = append(items, ordering.ItemRequest{MenuText: strings.TrimSpace(name), Quantity: n})
	}
	return items, nil
}

// callService builds the app, runs one service call and prints its result.
// Partial results such as per-item failures are printed before the error.
func callService(fn func(ctx context.Context, svc *ordering.Service) (*ordering.Result, error)) error {
	return withApp(func(ctx context.Context, a *app) error {
		res, err := fn(ctx, a.service)
		if res != nil {
			if perr := printResult(res); perr != nil {
				return perr
			}
		}
		return err
	})
}
