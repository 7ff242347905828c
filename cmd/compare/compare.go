package compare

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/ddldiff/cmd/internal/cliapp"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/schemadiff"
	"github.com/stokaro/ddldiff/migration/schemadiff/types"
)

const (
	sourceFlag      = "source"
	targetFlag      = "target"
	sourceOwnerFlag = "source-owner"
	targetOwnerFlag = "target-owner"
	formatFlag      = "format"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		sourceFlag: &cobraflags.StringFlag{
			Name:  sourceFlag,
			Value: "",
			Usage: "Source snapshot (store ID, .yaml, .sql, profile:<name> or database URL)",
		},
		targetFlag: &cobraflags.StringFlag{
			Name:  targetFlag,
			Value: "",
			Usage: "Target snapshot",
		},
		sourceOwnerFlag: &cobraflags.StringFlag{
			Name:  sourceOwnerFlag,
			Value: "",
			Usage: "Owning schema of the source (required for .sql scripts)",
		},
		targetOwnerFlag: &cobraflags.StringFlag{
			Name:  targetOwnerFlag,
			Value: "",
			Usage: "Owning schema of the target (required for .sql scripts)",
		},
		formatFlag: &cobraflags.StringFlag{
			Name:  formatFlag,
			Value: "text",
			Usage: "Output format (text, json)",
		},
	}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "List the differences between two snapshots",
		Long: `Compare two snapshots and list the objects that were added, removed or modified.

Examples:
  ddldiff compare --source prod.yaml --target dev.yaml
  ddldiff compare --source profile:prod --target profile:test --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return compareCommand(cmd, flags)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func compareCommand(cmd *cobra.Command, flags map[string]cobraflags.Flag) error {
	ctx := cmd.Context()
	app := cliapp.FromContext(ctx)

	sourceRef := flags[sourceFlag].GetString()
	targetRef := flags[targetFlag].GetString()
	if sourceRef == "" || targetRef == "" {
		return fmt.Errorf("both --%s and --%s are required", sourceFlag, targetFlag)
	}
	format := flags[formatFlag].GetString()
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported output format %q", format)
	}

	source, err := app.LoadSnapshot(ctx, sourceRef, flags[sourceOwnerFlag].GetString())
	if err != nil {
		return fmt.Errorf("error loading source snapshot: %w", err)
	}
	target, err := app.LoadSnapshot(ctx, targetRef, flags[targetOwnerFlag].GetString())
	if err != nil {
		return fmt.Errorf("error loading target snapshot: %w", err)
	}

	opts, err := app.Settings.CompareOptions()
	if err != nil {
		return err
	}
	diff, err := schemadiff.CompareWithOptions(source, target, opts.WithLogger(app.Logger))
	if err != nil {
		return fmt.Errorf("error comparing snapshots: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(diff)
	}
	printDiff(cmd.OutOrStdout(), diff)
	return nil
}

func printDiff(w io.Writer, diff *types.SchemaDiff) {
	if !diff.HasChanges() {
		fmt.Fprintln(w, "No differences found.")
		cliapp.PrintWarnings(w, diff.Warnings)
		return
	}

	for _, d := range diff.Differences {
		fmt.Fprintf(w, "%-9s %s\n", d.Type, d.Key())
	}

	summary := diff.Summary()
	fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n", summary.Added, summary.Removed, summary.Modified)

	objectTypes := make([]dbtypes.ObjectType, 0, len(summary.ByType))
	for t := range summary.ByType {
		objectTypes = append(objectTypes, t)
	}
	sort.Slice(objectTypes, func(i, j int) bool { return objectTypes[i] < objectTypes[j] })
	for _, t := range objectTypes {
		fmt.Fprintf(w, "  %-18s %d\n", t, summary.ByType[t])
	}
	cliapp.PrintWarnings(w, diff.Warnings)
}
