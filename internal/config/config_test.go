package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/outbox/internal/adapters/driven/config/file"
)

var testOptions = []Option{
	{Name: DatabasePath, Env: "DATABASE_PATH", Doc: "Path to the SQLite database", Default: "data.sqlite3"},
	{Name: LogLevel, Env: "LOG_LEVEL", Doc: "Log level", Default: "info", Choices: []string{"debug", "info", "warn"}},
	{Name: Port, Env: "PORT", Doc: "HTTP port", Default: "8089"},
	{Name: ImportProgressInterval, Env: "IMPORT_PROGRESS_INTERVAL", Doc: "Progress cadence", Default: "1s"},
}

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestAssemble_Defaults(t *testing.T) {
	cfg, err := Assemble(Sources{LookupEnv: noEnv}, testOptions)
	require.NoError(t, err)

	assert.Equal(t, "data.sqlite3", cfg.Get(DatabasePath))
	assert.Equal(t, SourceDefault, cfg.Source(DatabasePath))

	port, err := cfg.GetInt(Port)
	require.NoError(t, err)
	assert.Equal(t, 8089, port)

	interval, err := cfg.GetDuration(ImportProgressInterval)
	require.NoError(t, err)
	assert.Equal(t, time.Second, interval)
}

func TestAssemble_Precedence(t *testing.T) {
	dir := t.TempDir()

	store, err := file.NewConfigStore(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	require.NoError(t, store.Set(DatabasePath, "from-file.sqlite3"))
	require.NoError(t, store.Set(Port, 9000))
	require.NoError(t, store.Set(LogLevel, "warn"))

	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("PORT=9100\nLOG_LEVEL=debug\n"), 0600))

	cfg, err := Assemble(Sources{
		File:      store,
		DotEnv:    dotenv,
		LookupEnv: envMap(map[string]string{"LOG_LEVEL": "info"}),
		Overrides: []string{"importProgressInterval=250ms"},
	}, testOptions)
	require.NoError(t, err)

	tests := []struct {
		name   string
		want   string
		source Source
	}{
		{DatabasePath, "from-file.sqlite3", SourceFile},
		{Port, "9100", SourceDotEnv},
		{LogLevel, "info", SourceEnv},
		{ImportProgressInterval, "250ms", SourceOverride},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Get(tt.name))
			assert.Equal(t, tt.source, cfg.Source(tt.name))
		})
	}
}

func TestAssemble_MultipleContributions(t *testing.T) {
	storage := []Option{{Name: DatabasePath, Default: "a.sqlite3"}}
	serve := []Option{{Name: Host, Default: "localhost"}}

	cfg, err := Assemble(Sources{LookupEnv: noEnv}, storage, serve)
	require.NoError(t, err)

	assert.True(t, cfg.Has(DatabasePath))
	assert.True(t, cfg.Has(Host))
	assert.False(t, cfg.Has(Port))

	names := make([]string, 0)
	for _, opt := range cfg.Options() {
		names = append(names, opt.Name)
	}
	assert.Equal(t, []string{DatabasePath, Host}, names)
}

func TestAssemble_DuplicateOption(t *testing.T) {
	_, err := Assemble(Sources{LookupEnv: noEnv},
		[]Option{{Name: Port}},
		[]Option{{Name: Port}},
	)
	assert.Error(t, err)
}

func TestAssemble_UnknownOverride(t *testing.T) {
	_, err := Assemble(Sources{
		LookupEnv: noEnv,
		Overrides: []string{"nope=1"},
	}, testOptions)
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestAssemble_MalformedOverride(t *testing.T) {
	_, err := Assemble(Sources{
		LookupEnv: noEnv,
		Overrides: []string{"port"},
	}, testOptions)
	assert.Error(t, err)
}

func TestAssemble_InvalidChoice(t *testing.T) {
	_, err := Assemble(Sources{
		LookupEnv: envMap(map[string]string{"LOG_LEVEL": "loud"}),
	}, testOptions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logLevel")
}

func TestAssemble_MissingDotEnvIgnored(t *testing.T) {
	cfg, err := Assemble(Sources{
		LookupEnv: noEnv,
		DotEnv:    filepath.Join(t.TempDir(), ".env"),
	}, testOptions)
	require.NoError(t, err)
	assert.Equal(t, "8089", cfg.Get(Port))
}

func TestAssemble_OverrideValueWithEquals(t *testing.T) {
	cfg, err := Assemble(Sources{
		LookupEnv: noEnv,
		Overrides: []string{"databasePath=file:x.db?mode=ro"},
	}, testOptions)
	require.NoError(t, err)
	assert.Equal(t, "file:x.db?mode=ro", cfg.Get(DatabasePath))
}

func TestConfig_GetDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"1s", time.Second, false},
		{"1500", 1500 * time.Millisecond, false},
		{" 2m ", 2 * time.Minute, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg, err := Assemble(Sources{
				LookupEnv: noEnv,
				Overrides: []string{ImportProgressInterval + "=" + tt.raw},
			}, testOptions)
			require.NoError(t, err)

			got, err := cfg.GetDuration(ImportProgressInterval)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_GetBool(t *testing.T) {
	opts := []Option{{Name: "pretty", Default: ""}}

	cfg, err := Assemble(Sources{LookupEnv: noEnv}, opts)
	require.NoError(t, err)
	b, err := cfg.GetBool("pretty")
	require.NoError(t, err)
	assert.False(t, b)

	cfg, err = Assemble(Sources{LookupEnv: noEnv, Overrides: []string{"pretty=true"}}, opts)
	require.NoError(t, err)
	b, err = cfg.GetBool("pretty")
	require.NoError(t, err)
	assert.True(t, b)

	cfg, err = Assemble(Sources{LookupEnv: noEnv, Overrides: []string{"pretty=maybe"}}, opts)
	require.NoError(t, err)
	_, err = cfg.GetBool("pretty")
	assert.Error(t, err)
}

func TestConfig_GetInt_Invalid(t *testing.T) {
	cfg, err := Assemble(Sources{LookupEnv: noEnv, Overrides: []string{"port=http"}}, testOptions)
	require.NoError(t, err)

	_, err = cfg.GetInt(Port)
	assert.Error(t, err)
}

func TestConfig_OptionsIsCopy(t *testing.T) {
	cfg, err := Assemble(Sources{LookupEnv: noEnv}, testOptions)
	require.NoError(t, err)

	opts := cfg.Options()
	opts[0].Default = "mutated"

	assert.NotEqual(t, "mutated", cfg.Options()[0].Default)
}
