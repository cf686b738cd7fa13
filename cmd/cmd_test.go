package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/configuration"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/events"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/pagestore"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/preview"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

const (
	addHero = "MESSAGE: add hero\n---\nOPERATION: add\nPOSITION: end\n---\n<section id=\"hero\"><h1>Hi</h1></section>"
	byeHero = "MESSAGE: new greeting\n---\nOPERATION: modify\nSELECTOR: #hero\n---\n<section id=\"hero\"><h1>Bye</h1></section>"
)

func TestMain(m *testing.M) {
	// the process logger is created once, under the first home directory
	home, err := os.MkdirTemp("", "unicorn-cmd")
	if err != nil {
		panic(err)
	}
	os.Setenv("UNICORN_HOME", home)
	code := m.Run()
	utils.GetLogger().Close()
	os.RemoveAll(home)
	os.Exit(code)
}

// run executes the root command with fresh flags and a private home.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseCommand(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	out, _, err := run(t, addHero, "parse")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "insert", got["operation"])
	assert.Equal(t, "end", got["position"])
	assert.Equal(t, "add hero", got["message"])
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, got["fragment"])
	assert.NotContains(t, got, "message_html")
}

func TestParseAllRendersMessage(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())
	path := writeFile(t, "resp.txt", "MESSAGE: **done**\n---\n"+
		"TOKEN_UPDATE: colors\n---\nprimary: #ff0000\n---\n"+
		"OPERATION: delete\nSELECTOR: .promo\n---\n")

	out, _, err := run(t, "", "parse", "--all", "--render-message", path)
	require.NoError(t, err)

	var got struct {
		Message     string           `json:"message"`
		MessageHTML string           `json:"message_html"`
		Directives  []map[string]any `json:"directives"`
		Tokens      []struct {
			Category string            `json:"category"`
			Values   map[string]string `json:"values"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "**done**", got.Message)
	assert.Contains(t, got.MessageHTML, "<strong>done</strong>")
	require.Len(t, got.Directives, 1)
	assert.Equal(t, "delete", got.Directives[0]["operation"])
	require.Len(t, got.Tokens, 1)
	assert.Equal(t, "#ff0000", got.Tokens[0].Values["primary"])
}

func TestParseRejectsProse(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	_, _, err := run(t, "Sorry, I cannot help with that.", "parse")
	assert.ErrorIs(t, err, utils.ErrGrammarViolation)
}

func TestScrubCommand(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	out, _, err := run(t, "<div>\nOPERATION: add\n<p>x</p>\n</div>", "scrub")
	require.NoError(t, err)
	assert.NotContains(t, out, "OPERATION")
	assert.Contains(t, out, "<p>x</p>")
}

func TestApplyToFile(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())
	doc := writeFile(t, "index.html", "<html><body>\n<main>x</main>\n</body></html>")
	resp := writeFile(t, "resp.txt", addHero)

	out, _, err := run(t, "", "apply", "--doc", doc, "--response", resp, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, doc+" +")
	assert.Contains(t, out, `+ <section id="hero">`)
	data, _ := os.ReadFile(doc)
	assert.NotContains(t, string(data), "hero", "dry run leaves the file alone")

	out, _, err = run(t, "", "apply", "--doc", doc, "--response", resp)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+doc)
	data, _ = os.ReadFile(doc)
	patched := string(data)
	assert.Contains(t, patched, `<section id="hero"><h1>Hi</h1></section>`)
	assert.Less(t, strings.Index(patched, "hero"), strings.Index(patched, "</body>"))
}

func TestApplyWarnsOnMiss(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())
	doc := writeFile(t, "index.html", "<body><main>x</main></body>")

	out, errOut, err := run(t, byeHero, "apply", "--doc", doc)
	require.NoError(t, err)
	assert.Contains(t, errOut, "matched nothing")
	assert.NotContains(t, out, "wrote")
}

func TestApplyNeedsATarget(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	_, _, err := run(t, addHero, "apply")
	assert.Error(t, err)
}

func TestApplyRejectsProse(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())
	doc := writeFile(t, "index.html", "<body></body>")

	_, _, err := run(t, "no edits today", "apply", "--doc", doc)
	assert.ErrorIs(t, err, utils.ErrGrammarViolation)
}

func TestApplyPageHistoryRestore(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	out, _, err := run(t, addHero, "apply", "--page", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "saved home revision 1")

	out, _, err = run(t, byeHero, "apply", "--page", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "saved home revision 2")
	assert.Contains(t, out, "- <section id=\"hero\"><h1>Hi</h1></section>")

	out, _, err = run(t, "", "history", "--page", "home")
	require.NoError(t, err)
	assert.Contains(t, out, "REVISION")
	assert.Contains(t, out, "new greeting")
	assert.Less(t, strings.Index(out, "new greeting"), strings.Index(out, "add hero"), "newest first")

	out, _, err = run(t, "", "history", "--page", "home", "--restore", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "restored home revision 1 as revision 3")

	out, _, err = run(t, "", "history", "--page", "home", "--json", "--limit", "1")
	require.NoError(t, err)
	var revs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &revs))
	require.Len(t, revs, 1)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, revs[0]["document"])
}

func TestHistoryUnknownPage(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	_, _, err := run(t, "", "history", "--page", "nope")
	assert.Error(t, err)
}

func TestLogCommandWithoutLog(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	out, _, err := run(t, "", "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No log entries yet")
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())

	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "unicorn version dev")
	assert.Contains(t, out, "Go version:")
}

func TestApplyWarnsOnAmbiguousSelector(t *testing.T) {
	t.Setenv("UNICORN_HOME", t.TempDir())
	doc := writeFile(t, "index.html", "<body>\n<div class=\"promo\">1</div>\n<div class=\"promo\">2</div>\n</body>")

	_, errOut, err := run(t, "MESSAGE: m\n---\nOPERATION: delete\nSELECTOR: .promo\n---\n", "apply", "--doc", doc)
	require.NoError(t, err)
	assert.Contains(t, errOut, `".promo" matches 2 elements`)

	data, _ := os.ReadFile(doc)
	assert.Equal(t, 1, strings.Count(string(data), "promo"))
}

func TestInvalidConfigNamesTheFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("UNICORN_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, configuration.ConfigFileName),
		[]byte(`{"max_revisions": -3}`), 0o600))

	_, _, err := run(t, "<p>x</p>", "scrub")
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))
	assert.Contains(t, err.Error(), configuration.ConfigFileName)
	assert.Contains(t, err.Error(), "delete the file to restore defaults")
}

func previewFixture(t *testing.T) (*cobra.Command, *bytes.Buffer, *events.EventBus, *preview.Session) {
	t.Helper()
	t.Setenv("UNICORN_HOME", t.TempDir())
	cfg = configuration.NewConfig()
	previewPage = "home"
	t.Cleanup(func() { previewPage = "" })

	var stderr bytes.Buffer
	c := &cobra.Command{}
	c.SetErr(&stderr)

	bus := events.NewEventBus()
	sess := preview.NewSession(bus)
	sess.Append(addHero)
	return c, &stderr, bus, sess
}

func TestFinishPreviewSkipsSaveWhenInterrupted(t *testing.T) {
	c, stderr, bus, sess := previewFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, finishPreview(ctx, c, bus, sess))
	assert.Contains(t, stderr.String(), "interrupted, nothing saved")

	store, err := openStore()
	require.NoError(t, err)
	defer store.Close()
	_, err = store.Get(context.Background(), "home")
	assert.ErrorIs(t, err, pagestore.ErrNotFound)
}

func TestFinishPreviewSavesPage(t *testing.T) {
	c, _, bus, sess := previewFixture(t)
	ch := bus.Subscribe("t")

	require.NoError(t, finishPreview(context.Background(), c, bus, sess))

	store, err := openStore()
	require.NoError(t, err)
	defer store.Close()
	page, err := store.Get(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Revision)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, page.Document)

	var patched *events.Event
	for len(ch) > 0 {
		ev := <-ch
		if ev.Type == events.EventTypeDocumentPatched {
			patched = &ev
		}
	}
	require.NotNil(t, patched)
	assert.Equal(t, sess.ID, patched.Session)
}
