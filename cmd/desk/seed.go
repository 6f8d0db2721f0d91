package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/options_desk/internal/mock"
	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/quotes"
	"github.com/eddiefleurent/options_desk/internal/rules"
)

func newSeedCmd(a *app) *cobra.Command {
	var quotesPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a sample book, account, rule catalog and matching quote file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			desk := a.service(store, quotes.NewStaticSource())

			now := time.Now().UTC()
			data := mock.NewDataProvider()
			prices := data.Prices()
			positions := data.SamplePositions(now)

			n, err := desk.SyncTrades(positions)
			if err != nil {
				return err
			}
			acct := data.SampleAccount(now)
			if err := desk.SyncAccount(&acct); err != nil {
				return err
			}
			for _, r := range rules.Catalog() {
				if err := store.SaveRule(&r); err != nil {
					return fmt.Errorf("seeding rules: %w", err)
				}
			}
			for _, p := range positions {
				if p.Status != models.StatusOpen {
					continue
				}
				if _, err := desk.AddJournal(p.ID, "Entered "+p.Strategy+"; "+p.ExitTrigger); err != nil {
					return err
				}
			}

			if quotesPath == "" {
				quotesPath = a.cfg.Quotes.StaticFile
			}
			if quotesPath != "" {
				if err := quotes.WriteStaticFile(quotesPath, prices, data.OptionQuotes(positions, now)); err != nil {
					return err
				}
			}

			a.logger.WithField("trades", n).Info("sample book seeded")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d trades, %d rules; quotes: %s\n",
				n, len(rules.Catalog()), orNone(quotesPath))
			return err
		},
	}
	cmd.Flags().StringVar(&quotesPath, "quotes", "", "write sample quotes here (default quotes.static_file)")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
