package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stokaro/ddldiff/config"
	"github.com/stokaro/ddldiff/core/platform"
	dbtypes "github.com/stokaro/ddldiff/dbschema/types"
	"github.com/stokaro/ddldiff/migration/planner"
	"github.com/stokaro/ddldiff/migration/planner/dialects/mysql"
	"github.com/stokaro/ddldiff/migration/planner/dialects/postgres"
	"github.com/stokaro/ddldiff/migration/schemadiff"
	"github.com/stokaro/ddldiff/migration/schemadiff/types"
)

// RunAllFileName is the driver script listing every generated script in execution
// order.
const RunAllFileName = "RUN_ALL.sql"

// ErrScriptExists is returned by WriteScripts when a script file is already present
// and overwriting was not requested.
var ErrScriptExists = errors.New("script already exists")

// GenerateOptions contains options for migration generation
type GenerateOptions struct {
	// Source is the snapshot describing the schema as it is
	Source *dbtypes.Snapshot
	// Target is the snapshot describing the schema as it should become
	Target *dbtypes.Snapshot
	// Dialect selects the planner overrides (platform.Oracle when empty)
	Dialect string
	// Reverse generates the scripts that lead from Target back to Source
	Reverse bool
	// CompareOptions configures the comparison (defaults when nil)
	CompareOptions *config.CompareOptions
	// OutputDir is the directory the scripts are written to; nothing is written when empty
	OutputDir string
	// Write controls how scripts are written to OutputDir
	Write WriteOptions
	// Logger receives warnings (slog.Default when nil)
	Logger *slog.Logger
}

// WriteOptions controls WriteScripts.
type WriteOptions struct {
	// Overwrite replaces scripts that already exist in the output directory
	Overwrite bool
	// SkipRunAll suppresses the RUN_ALL.sql driver script
	SkipRunAll bool
}

// Result is the outcome of a generation run.
type Result struct {
	Diff  *types.SchemaDiff
	Plan  *planner.Plan
	Files []string // paths written, in execution order, RUN_ALL.sql last
}

// Warnings returns the comparison warnings followed by the planning warnings.
func (r *Result) Warnings() []dbtypes.Warning {
	out := make([]dbtypes.Warning, 0, len(r.Diff.Warnings)+len(r.Plan.Warnings))
	out = append(out, r.Diff.Warnings...)
	return append(out, r.Plan.Warnings...)
}

// GenerateMigration compares the two snapshots, plans the migration scripts and,
// when OutputDir is set, writes them.
//
// A comparison without differences is a successful no-op: the result carries an
// empty plan and no files are written.
func GenerateMigration(opts GenerateOptions) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	compareOpts := opts.CompareOptions
	if compareOpts == nil {
		compareOpts = config.DefaultCompareOptions()
	}
	compareOpts = compareOpts.WithLogger(logger)

	// 1. Calculate the diff between the snapshots
	diff, err := schemadiff.CompareWithOptions(opts.Source, opts.Target, compareOpts)
	if err != nil {
		return nil, fmt.Errorf("error comparing snapshots: %w", err)
	}
	if opts.Reverse {
		diff = diff.Reverse()
	}

	// 2. Plan the scripts
	p, err := PlannerFor(opts.Dialect, logger)
	if err != nil {
		return nil, err
	}
	plan := p.GenerateScripts(diff.Differences)
	result := &Result{Diff: diff, Plan: plan}

	if !diff.HasChanges() {
		logger.Debug("No differences between snapshots", "source", diff.SourceID, "target", diff.TargetID)
		return result, nil
	}

	// 3. Write the scripts
	if opts.OutputDir == "" {
		return result, nil
	}
	files, err := WriteScripts(opts.OutputDir, plan, opts.Write)
	if err != nil {
		return result, fmt.Errorf("error writing migration scripts: %w", err)
	}
	result.Files = files
	return result, nil
}

// PlannerFor returns a planner carrying the policy overrides of dialect. An empty
// dialect selects Oracle, which uses the default policies unchanged.
func PlannerFor(dialect string, logger *slog.Logger) (*planner.Planner, error) {
	opts := []planner.Option{}
	if logger != nil {
		opts = append(opts, planner.WithLogger(logger))
	}

	name := platform.Oracle
	if dialect != "" {
		name = platform.NormalizeDialect(dialect)
	}
	switch name {
	case platform.Oracle:
	case platform.Postgres:
		opts = append(opts, planner.WithPolicies(postgres.Policies()))
	case platform.MySQL:
		opts = append(opts, planner.WithPolicies(mysql.Policies()))
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return planner.New(opts...), nil
}

// WriteScripts writes one UTF-8 file per script into dir, followed by RUN_ALL.sql
// unless SkipRunAll is set. Each file holds the script content and a final newline.
//
// A plan with file name collisions is refused, and so is a plan whose files already
// exist in dir unless Overwrite is set. Both checks happen before anything is
// written. It returns the written paths.
func WriteScripts(dir string, plan *planner.Plan, opts WriteOptions) ([]string, error) {
	if err := plan.Err(); err != nil {
		return nil, err
	}
	if len(plan.Scripts) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	names := plan.FileNames()
	if !opts.SkipRunAll {
		names = append(names, RunAllFileName)
	}
	if !opts.Overwrite {
		if err := checkNotExisting(dir, names); err != nil {
			return nil, err
		}
	}

	written := make([]string, 0, len(names))
	for _, script := range plan.Scripts {
		path := filepath.Join(dir, script.FileName)
		if err := os.WriteFile(path, []byte(script.Content+"\n"), 0644); err != nil { //nolint:gosec // 0644 is fine
			return written, fmt.Errorf("failed to write script %s: %w", script.FileName, err)
		}
		written = append(written, path)
	}

	if !opts.SkipRunAll {
		path := filepath.Join(dir, RunAllFileName)
		if err := os.WriteFile(path, []byte(RunAll(plan)), 0644); err != nil { //nolint:gosec // 0644 is fine
			return written, fmt.Errorf("failed to write %s: %w", RunAllFileName, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// RunAll renders the driver script that runs every script of the plan in order.
func RunAll(plan *planner.Plan) string {
	var sb strings.Builder
	sb.WriteString("-- Runs the migration scripts in execution order.\n")
	for _, script := range plan.Scripts {
		fmt.Fprintf(&sb, "@@%s\n", script.FileName)
	}
	return sb.String()
}

func checkNotExisting(dir string, names []string) error {
	var existing []string
	for _, name := range names {
		_, err := os.Stat(filepath.Join(dir, name))
		switch {
		case err == nil:
			existing = append(existing, name)
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to check %s: %w", name, err)
		}
	}
	if len(existing) > 0 {
		return fmt.Errorf("%w in %s: %s", ErrScriptExists, dir, strings.Join(existing, ", "))
	}
	return nil
}
