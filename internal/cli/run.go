package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/rss-opinion/internal/config"
	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/function"
	"github.com/samvad-hq/rss-opinion/internal/logger"
)

var runSources []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one invocation and print the report",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().StringSliceVar(&runSources, "source", nil, "only process the named source (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	app, err := function.Build(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	sources, err := selectSources(app, runSources)
	if err != nil {
		return err
	}

	rep := app.Run(cmd.Context(), sources...)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// selectSources resolves names against the registry. No names means all sources.
func selectSources(app *function.App, names []string) ([]domain.Source, error) {
	if len(names) == 0 {
		return app.Sources.All(), nil
	}
	out := make([]domain.Source, 0, len(names))
	for _, name := range names {
		src, ok := app.Sources.ByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, name)
		}
		out = append(out, src)
	}
	return out, nil
}
