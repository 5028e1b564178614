package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/outbox/internal/config"
)

// testEnv isolates a command run: its own database, seeds directory,
// config file and an empty environment.
type testEnv struct {
	dir       string
	dbPath    string
	seedsDir  string
	overrides []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	e := &testEnv{
		dir:      dir,
		dbPath:   filepath.Join(dir, "data.sqlite3"),
		seedsDir: filepath.Join(dir, "seeds"),
	}

	oldLookup, oldDotEnv := lookupEnv, dotEnvPath
	lookupEnv = func(string) (string, bool) { return "", false }
	dotEnvPath = filepath.Join(dir, ".env")
	t.Cleanup(func() {
		lookupEnv, dotEnvPath = oldLookup, oldDotEnv
	})

	return e
}

// run executes the command line and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	full := append([]string{}, args...)
	full = append(full,
		"--config-file", filepath.Join(e.dir, "config.toml"),
		"--no-pretty-logs",
		"-F", "databasePath="+e.dbPath,
		"-F", "databaseSeedsPath="+e.seedsDir,
		"-F", "logLevel=warn",
		"-F", "importProgressInterval=0",
	)
	for _, o := range e.overrides {
		full = append(full, "-F", o)
	}

	return execute(t, context.Background(), full...)
}

// execute runs rootCmd with fresh flag values.
func execute(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := Execute(ctx)
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag to its default so runs do not leak
// values into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "outbox", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "F", flag.Shorthand)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-file"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("no-pretty-logs"))
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"init", "import", "watch", "search", "activity", "db", "config", "serve", "mcp", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestStoreMode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"import"}, ""},
		{[]string{"search"}, ""},
		{[]string{"init"}, storeManual},
		{[]string{"db", "migrate", "latest"}, storeManual},
		{[]string{"db", "seed", "run"}, storeManual},
		{[]string{"config", "show"}, storeNone},
		{[]string{"version"}, storeNone},
	}

	for _, tt := range tests {
		cmd, _, err := rootCmd.Find(tt.args)
		require.NoError(t, err)
		assert.Equal(t, tt.want, storeMode(cmd), "%v", tt.args)
	}
}

func TestRoot_UnknownOverride(t *testing.T) {
	e := newTestEnv(t)
	e.overrides = []string{"nope=1"}

	_, _, err := e.run(t, "activity", "count")
	assert.ErrorIs(t, err, config.ErrUnknownOption)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	e := newTestEnv(t)
	e.overrides = []string{"logLevel=loud"}

	_, _, err := e.run(t, "version")
	assert.Error(t, err)
}

func TestRoot_EnvironmentLayer(t *testing.T) {
	e := newTestEnv(t)
	lookupEnv = func(key string) (string, bool) {
		if key == "PORT" {
			return "9999", true
		}
		return "", false
	}

	out, _, err := e.run(t, "config", "get", "port")
	require.NoError(t, err)
	assert.Equal(t, "9999\n", out)
}

func TestRoot_DotEnvLayer(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(dotEnvPath, []byte("HOST=0.0.0.0\n"), 0644))

	out, _, err := e.run(t, "config", "get", "host")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0\n", out)
}

func TestRoot_ClosesStoreAfterRun(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "activity", "count")
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.Nil(t, importService)
}

func TestVersionCmd(t *testing.T) {
	e := newTestEnv(t)

	original := version
	SetVersion("test-version-1.0.0")
	defer func() { version = original }()

	out, _, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "outbox version test-version-1.0.0")

	_, statErr := os.Stat(e.dbPath)
	assert.True(t, os.IsNotExist(statErr), "version should not create a database")
}
