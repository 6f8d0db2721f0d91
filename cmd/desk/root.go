package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/options_desk/internal/config"
	"github.com/eddiefleurent/options_desk/internal/logging"
	"github.com/eddiefleurent/options_desk/internal/portfolio"
	"github.com/eddiefleurent/options_desk/internal/quotes"
	"github.com/eddiefleurent/options_desk/internal/storage"
)

// app carries state shared by subcommands that need configuration.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	closers    []io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "desk",
		Short:        "Options discipline desk: live risk, guidance and rule scores for open trades",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to configuration file")

	cmd.AddCommand(
		newServeCmd(a),
		newScoreCmd(a),
		newPositionsCmd(a),
		newSeedCmd(a),
		newParseCmd(),
		newDetectCmd(),
	)
	return cmd
}

// setup loads configuration and builds the logger. Logs go to stderr so JSON on
// stdout stays clean.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, closer, err := logging.NewWithOutput(cfg.Environment, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closers = append(a.closers, closer)
	return nil
}

// openStore loads configuration and opens the configured storage backend.
func (a *app) openStore(cmd *cobra.Command) (storage.Interface, error) {
	if err := a.setup(cmd); err != nil {
		return nil, err
	}
	store, err := storage.NewStorage(a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

// openDesk wires storage and quotes into a portfolio service.
func (a *app) openDesk(cmd *cobra.Command) (*portfolio.Service, error) {
	store, err := a.openStore(cmd)
	if err != nil {
		return nil, err
	}
	src, err := quotes.NewSource(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return a.service(store, src), nil
}

func (a *app) service(store storage.Interface, src quotes.Source) *portfolio.Service {
	return portfolio.NewService(store, src, a.cfg.Rules, a.logger,
		portfolio.WithConcurrency(a.cfg.Quotes.Concurrency))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
