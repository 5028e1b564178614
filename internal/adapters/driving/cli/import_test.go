package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloGoodbye = `{
  "orderedItems": [
    {"id": "https://example.com/a/1", "type": "Create", "published": "2023-01-01T00:00:00Z",
     "object": {"type": "Note", "content": "<p>hello world</p>", "url": "https://example.com/n/1"}},
    {"id": "https://example.com/a/2", "type": "Create", "published": "2023-01-02T00:00:00Z",
     "object": {"type": "Note", "content": "<p>goodbye world</p>"}}
  ]
}`

func TestImportCmd_RequiresArgs(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestImportCmd_SummaryWording(t *testing.T) {
	e := newTestEnv(t)
	src := e.writeFile(t, "single.json",
		`{"orderedItems": [{"id": "https://example.com/a/9", "type": "Create", "object": {"content": "solo"}}]}`)

	out, _, err := e.run(t, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 activity from 1 source.")

	empty := e.writeFile(t, "empty.json", `{"orderedItems": []}`)
	out, _, err = e.run(t, "import", src, empty)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 activity from 2 sources.")
}

func TestImportCmd_ImportsAndReimports(t *testing.T) {
	e := newTestEnv(t)
	src := e.writeFile(t, "outbox.json", helloGoodbye)

	out, _, err := e.run(t, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 activities imported")
	assert.Contains(t, out, "Imported 2 activities from 1 source.")

	// Importing again leaves one copy of each activity.
	_, _, err = e.run(t, "import", src)
	require.NoError(t, err)

	out, _, err = e.run(t, "activity", "count")
	require.NoError(t, err)
	assert.Contains(t, out, "Activities:    2")
	assert.Contains(t, out, "Index entries: 2")
}

func TestImportCmd_StructuralErrorFails(t *testing.T) {
	e := newTestEnv(t)
	src := e.writeFile(t, "empty.json", `{}`)

	out, _, err := e.run(t, "import", src)
	assert.ErrorIs(t, err, errImportFailed)
	assert.Contains(t, out, "✗ "+src)
	assert.Contains(t, out, "Imported 0 activities from 1 source.")
}

func TestImportCmd_MalformedThenGood(t *testing.T) {
	e := newTestEnv(t)
	bad := e.writeFile(t, "bad.json", `{"items": []}`)
	good := e.writeFile(t, "good.json", helloGoodbye)

	out, _, err := e.run(t, "import", bad, good)
	assert.ErrorIs(t, err, errImportFailed)
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "✓ "+good+": 2 of 2 activities imported")
	assert.Contains(t, out, "Imported 2 activities from 2 sources.")

	out, _, err = e.run(t, "search", "goodbye")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/a/2")
}

func TestImportCmd_ReportsSkips(t *testing.T) {
	e := newTestEnv(t)
	src := e.writeFile(t, "mixed.json", `{"orderedItems": [{"id": "a"}, {"type": "Note"}, 42]}`)

	out, stderr, err := e.run(t, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 3 activities imported, 2 skipped")
	assert.Contains(t, stderr, "skipping record")
}

func TestImportCmd_MissingFile(t *testing.T) {
	e := newTestEnv(t)

	out, _, err := e.run(t, "import", filepath.Join(e.dir, "missing.json"))
	assert.ErrorIs(t, err, errImportFailed)
	assert.Contains(t, out, "opening source")
}

func TestWatchCmd_ImportsExistingFiles(t *testing.T) {
	e := newTestEnv(t)
	inbox := filepath.Join(e.dir, "inbox")
	require.NoError(t, os.Mkdir(inbox, 0755))
	e.writeFile(t, "inbox/outbox.json", helloGoodbye)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	args := []string{
		"watch", inbox,
		"--config-file", filepath.Join(e.dir, "config.toml"),
		"-F", "databasePath=" + e.dbPath,
		"-F", "logLevel=warn",
		"-F", "importProgressInterval=0",
	}
	out, _, err := execute(t, ctx, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 activities from 1 source.")
	assert.Contains(t, out, "Watching "+inbox)

	out, _, err = e.run(t, "activity", "count")
	require.NoError(t, err)
	assert.Contains(t, out, "Activities:    2")
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.run(t, "watch", filepath.Join(e.dir, "missing"))
	assert.Error(t, err)
}
