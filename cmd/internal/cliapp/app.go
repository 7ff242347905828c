// Package cliapp holds the state shared by the ddldiff commands: settings, logger,
// the snapshot store and the resolution of snapshot references.
package cliapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stokaro/ddldiff/config"
	"github.com/stokaro/ddldiff/dbschema"
	"github.com/stokaro/ddldiff/dbschema/store"
	"github.com/stokaro/ddldiff/dbschema/types"
)

// DefaultSettingsPath is read when no --config flag is given and the file exists.
const DefaultSettingsPath = "~/.ddldiff/config.yaml"

// ProfilePrefix marks a snapshot reference naming a connection profile.
const ProfilePrefix = "profile:"

// App is the per-invocation state handed to every command.
type App struct {
	Settings *config.Settings
	Logger   *slog.Logger
}

type appKey struct{}

// WithApp returns a context carrying app.
func WithApp(ctx context.Context, app *App) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey{}, app)
}

// FromContext returns the app stored by WithApp, or one built from the
// environment when there is none.
func FromContext(ctx context.Context) *App {
	if ctx != nil {
		if app, ok := ctx.Value(appKey{}).(*App); ok {
			return app
		}
	}
	settings, err := config.LoadSettings("")
	if err != nil {
		settings = &config.Settings{LogLevel: config.DefaultLogLevel, StorePath: config.ExpandHome(config.DefaultStorePath)}
	}
	return &App{Settings: settings, Logger: slog.Default()}
}

// Load builds the app for one invocation. An empty settingsPath falls back to
// DefaultSettingsPath when that file exists. A non-empty logLevel overrides the
// settings.
func Load(settingsPath, logLevel string, logOutput io.Writer) (*App, error) {
	if settingsPath == "" {
		if _, err := os.Stat(config.ExpandHome(DefaultSettingsPath)); err == nil {
			settingsPath = DefaultSettingsPath
		}
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	return &App{Settings: settings, Logger: config.NewLogger(logOutput, settings.LogLevel)}, nil
}

// OpenStore opens the snapshot store named by the settings.
func (a *App) OpenStore() (*store.SQLiteStore, error) {
	s, err := store.OpenSQLite(a.Settings.StorePath)
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot store %s: %w", a.Settings.StorePath, err)
	}
	return s.WithLogger(a.Logger), nil
}

// Connect opens a database given either a URL or a profile name. The returned
// owner is the profile's owner, empty for plain URLs.
func (a *App) Connect(dbURL, profile string) (conn *dbschema.DatabaseConnection, owner string, err error) {
	switch {
	case profile != "" && dbURL != "":
		return nil, "", fmt.Errorf("use either a database URL or a profile, not both")
	case profile != "":
		dbURL, owner, err = a.Settings.ResolveProfile(profile)
		if err != nil {
			return nil, "", err
		}
	case dbURL == "":
		return nil, "", fmt.Errorf("a database URL or a profile is required")
	}

	conn, err = dbschema.ConnectWithLogger(dbURL, a.Logger)
	if err != nil {
		return nil, "", err
	}
	return conn, owner, nil
}

// LoadSnapshot resolves a snapshot reference:
//
//	*.yaml, *.yml                       snapshot file written by "snapshot --out"
//	*.sql, *.ddl                        DDL script; owner is required
//	profile:<name>                      live read through a connection profile
//	oracle://, postgres://, mysql://    live read through a database URL
//	anything else                       snapshot ID in the store
func (a *App) LoadSnapshot(ctx context.Context, ref, owner string) (*types.Snapshot, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("empty snapshot reference")
	case strings.HasPrefix(ref, ProfilePrefix):
		return a.readLive(ctx, "", strings.TrimPrefix(ref, ProfilePrefix), owner)
	case strings.Contains(ref, "://"):
		return a.readLive(ctx, ref, "", owner)
	}

	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml":
		return store.ReadYAMLFile(ref)
	case ".sql", ".ddl":
		return store.ReadDDLScriptFile(ref, owner)
	}

	s, err := a.OpenStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Load(ctx, ref)
}

func (a *App) readLive(ctx context.Context, dbURL, profile, owner string) (*types.Snapshot, error) {
	conn, profileOwner, err := a.Connect(dbURL, profile)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if owner == "" {
		owner = profileOwner
	}
	snap, err := conn.ReadSnapshot(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}
	return snap, nil
}

// PrintWarnings writes one line per warning.
func PrintWarnings(w io.Writer, warnings []types.Warning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(warnings))
	for _, warning := range warnings {
		fmt.Fprintf(w, "  %s\n", warning)
	}
}
