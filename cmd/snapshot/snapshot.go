package snapshot

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/stokaro/ddldiff/cmd/internal/cliapp"
	"github.com/stokaro/ddldiff/dbschema/store"
	"github.com/stokaro/ddldiff/dbschema/types"
)

const (
	dbURLFlag   = "db-url"
	profileFlag = "profile"
	ownerFlag   = "owner"
	outFlag     = "out"
)

// NewSnapshotCommand creates the snapshot command and its subcommands.
func NewSnapshotCommand() *cobra.Command {
	flags := map[string]cobraflags.Flag{
		dbURLFlag: &cobraflags.StringFlag{
			Name:  dbURLFlag,
			Value: "",
			Usage: "Database URL (oracle://, postgres://, mysql://)",
		},
		profileFlag: &cobraflags.StringFlag{
			Name:  profileFlag,
			Value: "",
			Usage: "Connection profile from the settings file",
		},
		ownerFlag: &cobraflags.StringFlag{
			Name:  ownerFlag,
			Value: "",
			Usage: "Schema to capture (defaults to the profile owner or the connection's default schema)",
		},
		outFlag: &cobraflags.StringFlag{
			Name:  outFlag,
			Value: "",
			Usage: "Also write the snapshot to this YAML file",
		},
	}
	var noStore bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the DDL of a schema",
		Long: `Capture the DDL of every object of a schema and keep it in the snapshot store.

Default behavior (no subcommand): capture a snapshot from a database.

Available subcommands:
  list     - List stored snapshots
  import   - Store a snapshot read from a YAML file or DDL script
  export   - Write a stored snapshot to a YAML file
  delete   - Remove a stored snapshot

Examples:
  ddldiff snapshot --profile prod
  ddldiff snapshot --db-url oracle://hr:secret@db:1521/XE --out hr.yaml --no-store`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return captureCommand(cmd, flags, noStore)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&noStore, "no-store", false, "Do not save the snapshot in the store")

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newDeleteCommand())
	return cmd
}

func captureCommand(cmd *cobra.Command, flags map[string]cobraflags.Flag, noStore bool) error {
	ctx := cmd.Context()
	app := cliapp.FromContext(ctx)
	out := cmd.OutOrStdout()

	conn, profileOwner, err := app.Connect(flags[dbURLFlag].GetString(), flags[profileFlag].GetString())
	if err != nil {
		return err
	}
	defer conn.Close()

	owner := flags[ownerFlag].GetString()
	if owner == "" {
		owner = profileOwner
	}
	snap, err := conn.ReadSnapshot(ctx, owner)
	if err != nil {
		return fmt.Errorf("error reading snapshot: %w", err)
	}

	if path := flags[outFlag].GetString(); path != "" {
		if err := store.WriteYAMLFile(path, snap); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	if !noStore {
		if err := saveSnapshot(cmd, app, snap); err != nil {
			return err
		}
	}

	printSnapshot(out, snap)
	return nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := cliapp.FromContext(cmd.Context())
			s, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer s.Close()

			infos, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No snapshots stored.")
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(out, "%s  %-20s %s  %5d objects  %s\n",
					info.ID, info.Owner, info.CapturedAt.Format("2006-01-02 15:04:05"), info.ObjectCount, info.SourceConnection)
			}
			return nil
		},
	}
}

func newImportCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "import <file.yaml|file.sql>",
		Short: "Store a snapshot read from a YAML file or a DDL script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cliapp.FromContext(cmd.Context())
			snap, err := app.LoadSnapshot(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			if err := saveSnapshot(cmd, app, snap); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, ownerFlag, "", "Owning schema of a DDL script")
	return cmd
}

func newExportCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "export <snapshot-id>",
		Short: "Write a stored snapshot to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--%s is required", outFlag)
			}
			app := cliapp.FromContext(cmd.Context())
			s, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer s.Close()

			snap, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.WriteYAMLFile(path, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, outFlag, "", "YAML file to write")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <snapshot-id>...",
		Short: "Remove stored snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cliapp.FromContext(cmd.Context())
			s, err := app.OpenStore()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, id := range args {
				if err := s.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func saveSnapshot(cmd *cobra.Command, app *cliapp.App, snap *types.Snapshot) error {
	s, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(cmd.Context(), snap); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}
	return nil
}

func printSnapshot(w io.Writer, snap *types.Snapshot) {
	fmt.Fprintf(w, "Snapshot %s of %s: %d objects\n", snap.ID, snap.Owner, snap.Len())

	counts := snap.CountByType()
	objectTypes := make([]types.ObjectType, 0, len(counts))
	for t := range counts {
		objectTypes = append(objectTypes, t)
	}
	sort.Slice(objectTypes, func(i, j int) bool { return objectTypes[i] < objectTypes[j] })
	for _, t := range objectTypes {
		fmt.Fprintf(w, "  %-18s %d\n", t, counts[t])
	}
	cliapp.PrintWarnings(w, snap.Warnings())
}
