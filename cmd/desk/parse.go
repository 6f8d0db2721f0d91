package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/options_desk/internal/portfolio"
	"github.com/eddiefleurent/options_desk/internal/symbol"
)

type parsedOutput struct {
	symbol.ParsedOptionSymbol
	OCC string `json:"occ"`
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <symbol>",
		Short:   "Decode an option symbol such as \"SPY 17JAN25 450 C\"",
		Example: `  desk parse "SPY 17JAN25 450 C"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			ps, ok := symbol.Parse(text)
			if !ok {
				return fmt.Errorf("not an option symbol: %q", text)
			}
			return printJSON(cmd.OutOrStdout(), parsedOutput{ParsedOptionSymbol: ps, OCC: ps.OCC()})
		},
	}
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <leg>...",
		Short: "Classify a set of legs written as BUY|SELL[:qty]:<symbol>",
		Example: `  desk detect "SELL:SPY 17JAN25 450 C" "BUY:SPY 17JAN25 460 C"
  desk detect "BUY:2:QQQ 21MAR25 400 P"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			legs := make([]portfolio.LegInput, 0, len(args))
			for _, arg := range args {
				leg, err := parseLegArg(arg)
				if err != nil {
					return err
				}
				legs = append(legs, leg)
			}
			detected, err := portfolio.DetectSpread(legs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), detected)
		},
	}
}

// parseLegArg reads BUY|SELL[:qty]:<symbol>.
func parseLegArg(arg string) (portfolio.LegInput, error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 {
		return portfolio.LegInput{}, fmt.Errorf("leg %q: want BUY|SELL[:qty]:<symbol>", arg)
	}
	side, ok := portfolio.ParseSide(parts[0])
	if !ok {
		return portfolio.LegInput{}, fmt.Errorf("leg %q: side must be BUY or SELL", arg)
	}
	leg := portfolio.LegInput{Side: side, Quantity: 1, Symbol: parts[len(parts)-1]}
	if len(parts) == 3 {
		qty, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || qty < 1 {
			return portfolio.LegInput{}, fmt.Errorf("leg %q: quantity must be a positive integer", arg)
		}
		leg.Quantity = qty
	}
	return leg, nil
}
