// Command ddldiff captures schema snapshots, compares them and generates migration
// scripts.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stokaro/ddldiff/cmd/compare"
	"github.com/stokaro/ddldiff/cmd/generate"
	"github.com/stokaro/ddldiff/cmd/internal/cliapp"
	"github.com/stokaro/ddldiff/cmd/seal"
	"github.com/stokaro/ddldiff/cmd/snapshot"
)

var version = "dev"

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		settingsPath string
		logLevel     string
	)

	root := &cobra.Command{
		Use:     "ddldiff",
		Short:   "Compare schema DDL snapshots and generate migration scripts",
		Version: version,
		Long: `ddldiff captures the DDL of a database schema as a snapshot, compares two
snapshots and writes the scripts that turn one schema into the other.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := cliapp.Load(settingsPath, logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(app.Logger)
			cmd.SetContext(cliapp.WithApp(cmd.Context(), app))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&settingsPath, "config", "", "settings file (default: "+cliapp.DefaultSettingsPath+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(snapshot.NewSnapshotCommand())
	root.AddCommand(compare.NewCompareCommand())
	root.AddCommand(generate.NewGenerateCommand())
	root.AddCommand(seal.NewSealCommand())
	return root
}
