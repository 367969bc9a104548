package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cd3-tool/cd3/internal/types"
)

// isolate points every config lookup at a fresh temp tree and turns off
// color, pager and emoji so output is stable.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Setenv("CD3_DIR", "")
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CD3_NO_PAGER", "1")
	t.Setenv("CD3_NO_EMOJI", "1")
	chdir(t, root)
	return root
}

// resetFlags puts every flag of cmd and its children back to its default
// so one Execute does not leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes cd3 with args and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	dbPath, backendName = "", ""
	jsonOutput, verboseFlag, quietFlag, noColorFlag = false, false, false, false
	backendFlagSet = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	teardown()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err, "cd3 %s", strings.Join(args, " "))
	return out
}

func newSession(t *testing.T) string {
	t.Helper()
	root := isolate(t)
	dir := filepath.Join(root, ".cd3")
	mustRun(t, "init", "--db", dir)
	return dir
}

func listItems(t *testing.T, dir string) []*types.Item {
	t.Helper()
	var items []*types.Item
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "list")), &items))
	return items
}

func TestInit(t *testing.T) {
	root := isolate(t)

	out := mustRun(t, "init")
	assert.Contains(t, out, "Initialized cd3")
	assert.FileExists(t, filepath.Join(root, ".cd3", "config.yaml"))
	assert.FileExists(t, filepath.Join(root, ".cd3", ".gitignore"))
	assert.FileExists(t, filepath.Join(root, ".cd3", "state.json"))

	_, err := run(t, "", "init")
	require.Error(t, err)
	var h hintError
	require.ErrorAs(t, err, &h)
	assert.Contains(t, h.hint, "--force")

	mustRun(t, "init", "--force", "--prefix", "web")
	cfg, err := os.ReadFile(filepath.Join(root, ".cd3", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "prefix: web")
}

func TestInitRejectsBadInput(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "init", "--backend", "memory")
	assert.Error(t, err)
	_, err = run(t, "", "init", "--prefix", "has space")
	assert.Error(t, err)
}

func TestMissingSessionHint(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "list")
	require.Error(t, err)
	var h hintError
	require.ErrorAs(t, err, &h)
	assert.Contains(t, h.hint, "cd3 init")
}

func TestAddListShow(t *testing.T) {
	dir := newSession(t)

	out := mustRun(t, "--db", dir, "add", "Self-serve", "refunds")
	assert.Contains(t, out, "Self-serve refunds")
	mustRun(t, "--db", dir, "add", "Faster search", "--link", "https://tracker.example.com/T-42")

	items := listItems(t, dir)
	require.Len(t, items, 2)
	assert.Equal(t, "Faster search", items[0].Name, "equal CD3 falls back to name order")
	assert.True(t, strings.HasPrefix(items[0].ID, "cd3-"))
	require.NotNil(t, items[0].Link)
	assert.Equal(t, "https://tracker.example.com/T-42", *items[0].Link)
	assert.Nil(t, items[1].Link)

	out = mustRun(t, "--db", dir, "list")
	assert.Contains(t, out, "2 of 2 items")

	out = mustRun(t, "--db", dir, "show", "Faster search")
	assert.Contains(t, out, "tracker.example.com")

	_, err := run(t, "", "--db", dir, "show", "nothing-like-this")
	assert.Error(t, err)
}

func TestImportFromStdin(t *testing.T) {
	dir := newSession(t)
	_, err := run(t, "Alpha\n\nBeta, https://example.com/b\n", "--db", dir, "import", "-")
	require.NoError(t, err)

	items := listItems(t, dir)
	require.Len(t, items, 2)
	assert.Equal(t, "Alpha", items[0].Name)
	assert.Equal(t, "Beta", items[1].Name)
	require.NotNil(t, items[1].Link)
}

func TestItemEdits(t *testing.T) {
	dir := newSession(t)
	mustRun(t, "--db", dir, "add", "Alpha")

	mustRun(t, "--db", dir, "rename", "Alpha", "Alpha", "two")
	mustRun(t, "--db", dir, "deactivate", "Alpha two")
	items := listItems(t, dir)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha two", items[0].Name)
	assert.False(t, items[0].Active)

	var active []*types.Item
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "list", "--active")), &active))
	assert.Empty(t, active)

	mustRun(t, "--db", dir, "activate", "Alpha two")
	mustRun(t, "--db", dir, "remove", "Alpha two")
	assert.Empty(t, listItems(t, dir))
}

func TestWorkflowToResults(t *testing.T) {
	dir := newSession(t)
	mustRun(t, "--db", dir, "add", "Alpha")
	mustRun(t, "--db", dir, "add", "Beta")

	_, err := run(t, "", "--db", dir, "set", "Alpha", "urgency", "high")
	assert.Error(t, err, "urgency is closed before its stage")

	ratings := []struct {
		category    string
		alpha, beta string
	}{
		{"urgency", "high", "low"},
		{"value", "3", "1"},
		{"duration", "days", "months"},
	}
	for _, r := range ratings {
		mustRun(t, "--db", dir, "stage", "next")
		_, err := run(t, "", "--db", dir, "stage", "next")
		assert.Error(t, err, "%s stage is incomplete", r.category)

		mustRun(t, "--db", dir, "set", "Alpha", r.category, r.alpha)
		mustRun(t, "--db", dir, "set", "Beta", r.category, r.beta)
	}
	mustRun(t, "--db", dir, "stage", "next")

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "stage")), &status))
	assert.Equal(t, string(types.StageResults), status["stage"])

	ranking := func() []string {
		var res struct {
			Items             []*types.Item `json:"items"`
			ManuallyReordered bool          `json:"manuallyReordered"`
		}
		require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "results")), &res))
		names := make([]string, 0, len(res.Items))
		for _, it := range res.Items {
			names = append(names, it.Name)
		}
		return names
	}
	assert.Equal(t, []string{"Alpha", "Beta"}, ranking())

	mustRun(t, "--db", dir, "results", "up", "Beta")
	assert.Equal(t, []string{"Beta", "Alpha"}, ranking())

	mustRun(t, "--db", dir, "results", "reset")
	assert.Equal(t, []string{"Alpha", "Beta"}, ranking())

	mustRun(t, "--db", dir, "lock")
	_, err = run(t, "", "--db", dir, "set", "Beta", "value", "2")
	assert.Error(t, err, "locked sessions reject rating changes in Results")
	mustRun(t, "--db", dir, "unlock")
	mustRun(t, "--db", dir, "set", "Beta", "value", "2")

	out := mustRun(t, "--db", dir, "board")
	assert.Contains(t, out, "Alpha")
}

func TestNotes(t *testing.T) {
	dir := newSession(t)
	mustRun(t, "--db", dir, "add", "Alpha")

	mustRun(t, "--db", dir, "note", "add", "Alpha", "first", "thought")
	mustRun(t, "--db", dir, "note", "add", "Alpha", "second")
	mustRun(t, "--db", dir, "note", "edit", "Alpha", "1", "revised")

	items := listItems(t, dir)
	require.Len(t, items[0].Notes, 2)
	assert.Equal(t, "revised", items[0].Notes[0].Text)
	assert.Equal(t, "second", items[0].Notes[1].Text)

	_, err := run(t, "", "--db", dir, "note", "delete", "Alpha", "0")
	assert.Error(t, err)
	_, err = run(t, "", "--db", dir, "note", "delete", "Alpha", "3")
	assert.Error(t, err)

	mustRun(t, "--db", dir, "note", "delete", "Alpha", "1")
	items = listItems(t, dir)
	require.Len(t, items[0].Notes, 1)
	assert.Equal(t, "second", items[0].Notes[0].Text)
}

func TestSurvey(t *testing.T) {
	dir := newSession(t)
	mustRun(t, "--db", dir, "add", "Alpha")

	_, err := run(t, "", "--db", dir, "survey", "submit")
	assert.Error(t, err, "no open survey and no item")

	mustRun(t, "--db", dir, "survey", "open", "Alpha")
	mustRun(t, "--db", dir, "survey", "submit", "--urgency", "0,1,2,3", "--scope", "1,1,1,1")

	items := listItems(t, dir)
	require.NotNil(t, items[0].ConfidenceSurvey)
	assert.Equal(t, 3, items[0].ConfidenceSurvey.Urgency[types.ConfidenceLevel(4)])
	assert.Equal(t, 4, items[0].ConfidenceSurvey.Scope.Total())

	_, err = run(t, "", "--db", dir, "survey", "cancel")
	assert.Error(t, err, "submitting closed the survey")

	mustRun(t, "--db", dir, "survey", "delete", "Alpha")
	assert.Nil(t, listItems(t, dir)[0].ConfidenceSurvey)
}

func TestBucketCommands(t *testing.T) {
	dir := newSession(t)

	mustRun(t, "--db", dir, "bucket", "set", "urgency", "3", "title", "Burning")
	mustRun(t, "--db", dir, "bucket", "set", "urgency", "3", "limit", "1")

	table := func() types.BucketTable {
		var out struct {
			Buckets types.BucketTable `json:"buckets"`
		}
		require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "bucket")), &out))
		return out.Buckets
	}
	b, ok := table().Get(types.CategoryUrgency, types.LevelHigh)
	require.True(t, ok)
	assert.Equal(t, "Burning", b.Title)
	require.NotNil(t, b.Limit)
	assert.Equal(t, 1, *b.Limit)

	mustRun(t, "--db", dir, "bucket", "set", "urgency", "3", "limit", "none")
	b, _ = table().Get(types.CategoryUrgency, types.LevelHigh)
	assert.Nil(t, b.Limit)

	preset := filepath.Join(t.TempDir(), "preset.toml")
	mustRun(t, "--db", dir, "bucket", "export", preset)
	assert.FileExists(t, preset)
	mustRun(t, "--db", dir, "bucket", "import", preset)

	mustRun(t, "--db", dir, "confidence", "set", "2", "0.6")
	_, err := run(t, "", "--db", dir, "confidence", "set", "9", "0.6")
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	dir := newSession(t)
	mustRun(t, "--db", dir, "add", "Alpha")
	mustRun(t, "--db", dir, "stage", "next")

	mustRun(t, "--db", dir, "reset", "--yes")
	assert.Empty(t, listItems(t, dir))

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--db", dir, "--json", "stage")), &status))
	assert.Equal(t, string(types.StageItemListing), status["stage"])
}

func TestConfigCommands(t *testing.T) {
	root := isolate(t)
	mustRun(t, "init")

	mustRun(t, "config", "set", "list.sort", "name-asc")
	assert.Equal(t, "name-asc\n", mustRun(t, "config", "get", "list.sort"))

	_, err := run(t, "", "config", "set", "no.such.key", "x")
	var h hintError
	require.ErrorAs(t, err, &h)
	assert.Contains(t, h.hint, "list.sort")

	_, err = run(t, "", "config", "set", "backend", "carrier-pigeon")
	assert.Error(t, err)

	out := mustRun(t, "config", "show")
	assert.Contains(t, out, filepath.Join(root, ".cd3", "config.yaml"))
}

func TestVersion(t *testing.T) {
	isolate(t)
	out := mustRun(t, "version")
	assert.Contains(t, out, "cd3 version "+Version)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "--json", "version")), &v))
	assert.Equal(t, Version, v["version"])
	assert.Equal(t, Build, v["build"])
}

func TestSQLiteBackend(t *testing.T) {
	root := isolate(t)
	dir := filepath.Join(root, ".cd3")
	mustRun(t, "init", "--backend", "sqlite")
	assert.FileExists(t, filepath.Join(dir, SQLiteFileName))

	mustRun(t, "add", "Alpha")
	items := listItems(t, dir)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Name)
}
