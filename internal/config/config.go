// Package config assembles outbox configuration.
//
// Components contribute Option lists up front. Assemble merges them with
// values from, in increasing precedence, defaults, the TOML config file, a
// .env file, environment variables and -F name=value overrides, and returns
// one immutable Config. Nothing may change a Config after assembly.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/outbox/internal/core/ports/driven"
)

// Well-known option names.
const (
	DatabasePath           = "databasePath"
	DatabaseMigrationsPath = "databaseMigrationsPath"
	DatabaseSeedsPath      = "databaseSeedsPath"
	LogLevel               = "logLevel"
	ImportProgressInterval = "importProgressInterval"
	Host                   = "host"
	Port                   = "port"
	PublicPath             = "publicPath"
	SiteURL                = "siteUrl"
	ProjectDomain          = "projectDomain"
	ProjectID              = "projectId"
)

// ErrUnknownOption indicates a value was supplied for an option no
// component contributed.
var ErrUnknownOption = errors.New("unknown config option")

// Option describes one configuration value contributed by a component.
type Option struct {
	// Name is the key used in the config file and in -F overrides.
	Name string

	// Env is the environment variable that overrides the value.
	Env string

	// Doc is a one-line description shown by "outbox config show".
	Doc string

	// Default is used when no source supplies a value.
	Default string

	// Choices restricts the value when non-empty.
	Choices []string
}

// Source names where an assembled value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceFile     Source = "file"
	SourceDotEnv   Source = "dotenv"
	SourceEnv      Source = "env"
	SourceOverride Source = "flag"
)

// Sources are the inputs to Assemble beyond the option defaults.
type Sources struct {
	// File is the TOML config store. Nil skips the file layer.
	File driven.ConfigStore

	// DotEnv is the path of a .env file. A missing file is ignored.
	DotEnv string

	// LookupEnv reads the environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Overrides holds name=value pairs from the command line.
	Overrides []string
}

type value struct {
	raw    string
	source Source
}

// Config is an assembled, read-only configuration.
type Config struct {
	options []Option
	values  map[string]value
}

// Assemble builds a Config from option contributions and sources.
func Assemble(src Sources, contributions ...[]Option) (*Config, error) {
	cfg := &Config{values: make(map[string]value)}

	byName := make(map[string]Option)
	for _, group := range contributions {
		for _, opt := range group {
			if opt.Name == "" {
				return nil, errors.New("config option without a name")
			}
			if _, dup := byName[opt.Name]; dup {
				return nil, fmt.Errorf("config option %q contributed twice", opt.Name)
			}
			byName[opt.Name] = opt
			cfg.options = append(cfg.options, opt)
			cfg.values[opt.Name] = value{raw: opt.Default, source: SourceDefault}
		}
	}
	sort.Slice(cfg.options, func(i, j int) bool { return cfg.options[i].Name < cfg.options[j].Name })

	if src.File != nil {
		for _, opt := range cfg.options {
			if v, ok := src.File.Get(opt.Name); ok {
				cfg.values[opt.Name] = value{raw: stringify(v), source: SourceFile}
			}
		}
	}

	if src.DotEnv != "" {
		env, err := godotenv.Read(src.DotEnv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", src.DotEnv, err)
		}
		for _, opt := range cfg.options {
			if v, ok := env[opt.Env]; ok && opt.Env != "" {
				cfg.values[opt.Name] = value{raw: v, source: SourceDotEnv}
			}
		}
	}

	lookup := src.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, opt := range cfg.options {
		if opt.Env == "" {
			continue
		}
		if v, ok := lookup(opt.Env); ok {
			cfg.values[opt.Name] = value{raw: v, source: SourceEnv}
		}
	}

	for _, kv := range src.Overrides {
		name, v, err := ParseOverride(kv)
		if err != nil {
			return nil, err
		}
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOption, name)
		}
		cfg.values[name] = value{raw: v, source: SourceOverride}
	}

	var errs []error
	for _, opt := range cfg.options {
		v := cfg.values[opt.Name].raw
		if len(opt.Choices) > 0 && !slices.Contains(opt.Choices, v) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %s", opt.Name, v, strings.Join(opt.Choices, ", ")))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseOverride splits a name=value pair.
func ParseOverride(kv string) (name, value string, err error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid config override %q (want name=value)", kv)
	}
	return name, value, nil
}

// Options returns the contributed options sorted by name.
func (c *Config) Options() []Option {
	return slices.Clone(c.options)
}

// Has reports whether an option was contributed.
func (c *Config) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Get returns the value of an option, or "" if it was not contributed.
func (c *Config) Get(name string) string {
	return c.values[name].raw
}

// Source returns where the value of an option came from.
func (c *Config) Source(name string) Source {
	return c.values[name].source
}

// GetInt returns an option parsed as an integer.
func (c *Config) GetInt(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Get(name)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// GetDuration returns an option parsed with time.ParseDuration.
// A bare integer is read as milliseconds.
func (c *Config) GetDuration(name string) (time.Duration, error) {
	raw := strings.TrimSpace(c.Get(name))
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// GetBool returns an option parsed with strconv.ParseBool.
// An empty value is false.
func (c *Config) GetBool(name string) (bool, error) {
	raw := strings.TrimSpace(c.Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}
