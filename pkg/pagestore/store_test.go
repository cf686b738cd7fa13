package pagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "pages.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "home")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.History(context.Background(), "home", 10)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	s.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }

	p, err := s.Save(ctx, "home", "", "<body></body>", "create")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Revision)

	p, err = s.Save(ctx, "home", "<body></body>", "<body><p>x</p></body>", "add p")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Revision)

	got, err := s.Get(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "<body><p>x</p></body>", got.Document)
}

func TestSaveMergesOntoNewerVersion(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := "<header>h</header>\n<main>m</main>\n<footer>f</footer>\n"
	_, err := s.Save(ctx, "home", "", base, "")
	require.NoError(t, err)

	// someone else changed the header meanwhile
	_, err = s.Save(ctx, "home", base, "<header>H2</header>\n<main>m</main>\n<footer>f</footer>\n", "")
	require.NoError(t, err)

	// our edit was computed from base
	p, err := s.Save(ctx, "home", base, "<header>h</header>\n<main>m</main>\n<footer>F2</footer>\n", "footer")
	require.NoError(t, err)
	assert.Equal(t, "<header>H2</header>\n<main>m</main>\n<footer>F2</footer>\n", p.Document)

	hist, err := s.History(ctx, "home", 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Merged)
	assert.Equal(t, "footer", hist[0].Note)
}

func TestSaveConflict(t *testing.T) {
	ctx := context.Background()
	var logBuf bytes.Buffer
	s := openTestStore(t, WithLogger(utils.NewLogger(&logBuf)))

	_, err := s.Save(ctx, "p", "", "aaaaaaaaaaaaaaaaaaaa", "")
	require.NoError(t, err)
	_, err = s.Save(ctx, "p", "aaaaaaaaaaaaaaaaaaaa", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "")
	require.NoError(t, err)

	_, err = s.Save(ctx, "p", "aaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaXaaaaaaaaa", "")
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Contains(t, logBuf.String(), "conflict")

	got, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Revision)
}

func TestHistoryIsPruned(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, WithMaxRevisions(3))

	prev := ""
	for i := 1; i <= 5; i++ {
		doc := fmt.Sprintf("<p>%d</p>", i)
		_, err := s.Save(ctx, "home", prev, doc, "")
		require.NoError(t, err)
		prev = doc
	}

	hist, err := s.History(ctx, "home", 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{hist[0].Revision, hist[1].Revision, hist[2].Revision})
	assert.Equal(t, "<p>5</p>", hist[0].Document)
	assert.NotEqual(t, hist[0].ID, hist[1].ID)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Save(ctx, "home", "", "<p>one</p>", "")
	require.NoError(t, err)
	_, err = s.Save(ctx, "home", "<p>one</p>", "<p>two</p>", "")
	require.NoError(t, err)

	p, err := s.Restore(ctx, "home", 1)
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>", p.Document)
	assert.Equal(t, int64(3), p.Revision)

	_, err = s.Restore(ctx, "home", 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}
