package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/stokaro/ddldiff/core/formatter"
	"github.com/stokaro/ddldiff/dbschema/types"
)

const (
	// EnvPrefix prefixes every environment variable read into Settings.
	EnvPrefix = "DDLDIFF"

	DefaultStorePath = "~/.ddldiff/snapshots.db"
	DefaultLogLevel  = "info"
)

// Settings are the command line tool's application settings.
type Settings struct {
	LogLevel               string             `mapstructure:"log_level"`
	Formatter              string             `mapstructure:"formatter"`
	StorePath              string             `mapstructure:"store_path"`
	SecretKey              string             `mapstructure:"secret_key"`
	IgnoreSchemaQualifiers bool               `mapstructure:"ignore_schema_qualifiers"`
	IgnoredObjectTypes     []string           `mapstructure:"ignored_object_types"`
	Profiles               map[string]Profile `mapstructure:"profiles"`
}

// Profile is a named database connection. Password may be sealed with SealSecret;
// it replaces any password embedded in URL.
type Profile struct {
	URL      string `mapstructure:"url"`
	Owner    string `mapstructure:"owner"`
	Password string `mapstructure:"password"`
}

// LoadSettings reads settings from path (any format viper understands, usually
// YAML) and from DDLDIFF_* environment variables, which take precedence. An empty
// path reads the environment only.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("formatter", formatter.NameToken)
	v.SetDefault("store_path", DefaultStorePath)
	v.SetDefault("secret_key", "")
	v.SetDefault("ignore_schema_qualifiers", false)
	v.SetDefault("ignored_object_types", []string{})

	if path != "" {
		v.SetConfigFile(ExpandHome(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings file %s: %w", path, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	s.StorePath = ExpandHome(s.StorePath)
	return s, nil
}

// CompareOptions builds comparison options from the settings.
func (s *Settings) CompareOptions() (*CompareOptions, error) {
	f, err := formatter.ByName(s.Formatter)
	if err != nil {
		return nil, err
	}

	ignored := make([]types.ObjectType, 0, len(s.IgnoredObjectTypes))
	for _, raw := range s.IgnoredObjectTypes {
		t, known := types.ParseObjectType(raw)
		if !known {
			return nil, fmt.Errorf("unknown object type %q in ignored_object_types", raw)
		}
		ignored = append(ignored, t)
	}

	opts := WithIgnoredObjectTypes(ignored...).WithFormatter(f)
	opts.IgnoreSchemaQualifiers = s.IgnoreSchemaQualifiers
	return opts, nil
}

// ProfileNames returns the configured profile names in sorted order.
func (s *Settings) ProfileNames() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProfile returns the connection URL of the named profile with its password
// opened and embedded, together with the profile's schema owner.
func (s *Settings) ResolveProfile(name string) (dbURL, owner string, err error) {
	p, ok := s.Profiles[strings.ToLower(name)]
	if !ok {
		return "", "", fmt.Errorf("unknown connection profile %q", name)
	}
	if p.URL == "" {
		return "", "", fmt.Errorf("connection profile %q has no url", name)
	}
	if p.Password == "" {
		return p.URL, p.Owner, nil
	}

	password, err := OpenSecret(p.Password, s.SecretKey)
	if err != nil {
		return "", "", fmt.Errorf("connection profile %q: %w", name, err)
	}

	u, err := url.Parse(p.URL)
	if err != nil {
		return "", "", fmt.Errorf("connection profile %q: parsing url: %w", name, err)
	}
	if u.User == nil || u.User.Username() == "" {
		return "", "", fmt.Errorf("connection profile %q: url has no user name for the password", name)
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), p.Owner, nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
