package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/acckpi/internal/config"
	"github.com/signalnine/acckpi/internal/history"
)

var cfgFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "acckpi",
		Short:         "KPI evaluation for ACC/AEB simulation logs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "acckpi.yaml", "config file path (defaults apply when missing)")
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newRescoreCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newPlotCmd())
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newWatchCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(cfgFile)
}

// openHistory opens the store at path, falling back to the configured one.
// It returns nil when neither is set.
func openHistory(path string, cfg *config.Config) (*history.Store, error) {
	if path == "" {
		path = cfg.History.Path
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}
