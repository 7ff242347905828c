package generate

import (
	"fmt"
	"path/filepath"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/ddldiff/cmd/internal/cliapp"
	"github.com/stokaro/ddldiff/migration/generator"
)

const (
	sourceFlag      = "source"
	targetFlag      = "target"
	sourceOwnerFlag = "source-owner"
	targetOwnerFlag = "target-owner"
	dialectFlag     = "dialect"
	outputDirFlag   = "output-dir"
)

type switches struct {
	reverse   bool
	overwrite bool
	noRunAll  bool
	dryRun    bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		sourceFlag: &cobraflags.StringFlag{
			Name:  sourceFlag,
			Value: "",
			Usage: "Snapshot describing the schema as it is (store ID, .yaml, .sql, profile:<name> or database URL)",
		},
		targetFlag: &cobraflags.StringFlag{
			Name:  targetFlag,
			Value: "",
			Usage: "Snapshot describing the schema as it should become",
		},
		sourceOwnerFlag: &cobraflags.StringFlag{
			Name:  sourceOwnerFlag,
			Value: "",
			Usage: "Owning schema of the source (required for .sql scripts, optional for live reads)",
		},
		targetOwnerFlag: &cobraflags.StringFlag{
			Name:  targetOwnerFlag,
			Value: "",
			Usage: "Owning schema of the target",
		},
		dialectFlag: &cobraflags.StringFlag{
			Name:  dialectFlag,
			Value: "",
			Usage: "Database dialect of the scripts (oracle, postgres, mysql). Defaults to oracle",
		},
		outputDirFlag: &cobraflags.StringFlag{
			Name:  outputDirFlag,
			Value: "./migration",
			Usage: "Directory where migration scripts will be saved",
		},
	}
	sw := &switches{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate migration scripts that turn one snapshot into another",
		Long: `Generate migration scripts from the differences between two snapshots.

One script is written per changed object, named <ACTION>_<TYPE>_<NAME>.sql, together
with RUN_ALL.sql which runs them in execution order. Changes that cannot be applied
safely (tables, sequences) produce REVIEW scripts holding both definitions as comments.

Examples:
  ddldiff generate --source prod.yaml --target dev.yaml
  ddldiff generate --source profile:prod --target schema.sql --target-owner HR
  ddldiff generate --source 5f0c... --target 9a1e... --reverse --output-dir ./rollback`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generateCommand(cmd, flags, sw)
		},
	}

	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&sw.reverse, "reverse", false, "Generate the scripts leading from target back to source")
	cmd.Flags().BoolVar(&sw.overwrite, "overwrite", false, "Replace scripts already present in the output directory")
	cmd.Flags().BoolVar(&sw.noRunAll, "no-run-all", false, "Do not write RUN_ALL.sql")
	cmd.Flags().BoolVar(&sw.dryRun, "dry-run", false, "Print the scripts instead of writing them")
	return cmd
}

func generateCommand(cmd *cobra.Command, flags map[string]cobraflags.Flag, sw *switches) error {
	ctx := cmd.Context()
	app := cliapp.FromContext(ctx)
	out := cmd.OutOrStdout()

	sourceRef := flags[sourceFlag].GetString()
	targetRef := flags[targetFlag].GetString()
	if sourceRef == "" || targetRef == "" {
		return fmt.Errorf("both --%s and --%s are required", sourceFlag, targetFlag)
	}

	source, err := app.LoadSnapshot(ctx, sourceRef, flags[sourceOwnerFlag].GetString())
	if err != nil {
		return fmt.Errorf("error loading source snapshot: %w", err)
	}
	target, err := app.LoadSnapshot(ctx, targetRef, flags[targetOwnerFlag].GetString())
	if err != nil {
		return fmt.Errorf("error loading target snapshot: %w", err)
	}

	compareOpts, err := app.Settings.CompareOptions()
	if err != nil {
		return err
	}

	opts := generator.GenerateOptions{
		Source:         source,
		Target:         target,
		Dialect:        flags[dialectFlag].GetString(),
		Reverse:        sw.reverse,
		CompareOptions: compareOpts,
		Write: generator.WriteOptions{
			Overwrite:  sw.overwrite,
			SkipRunAll: sw.noRunAll,
		},
		Logger: app.Logger,
	}
	if !sw.dryRun {
		opts.OutputDir = flags[outputDirFlag].GetString()
	}

	result, err := generator.GenerateMigration(opts)
	if err != nil {
		return err
	}

	if !result.Diff.HasChanges() {
		fmt.Fprintln(out, "No differences found; no scripts generated.")
		cliapp.PrintWarnings(out, result.Warnings())
		return nil
	}

	if sw.dryRun {
		for _, s := range result.Plan.Scripts {
			fmt.Fprintf(out, "-- [%d] %s\n%s\n\n", s.ExecutionOrder, s.FileName, s.Content)
		}
		cliapp.PrintWarnings(out, result.Warnings())
		if result.Plan.HasCollisions() {
			return result.Plan.Err()
		}
		return nil
	}

	summary := result.Diff.Summary()
	fmt.Fprintf(out, "%d added, %d removed, %d modified\n", summary.Added, summary.Removed, summary.Modified)
	fmt.Fprintf(out, "Generated %d scripts in %s:\n", len(result.Plan.Scripts), opts.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", filepath.Base(f))
	}
	cliapp.PrintWarnings(out, result.Warnings())
	return nil
}
