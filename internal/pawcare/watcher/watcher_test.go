package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/internal/pawcare/biz"
	"github.com/kart-io/pawcare/pkg/infra/pool"
)

type countingIndexer struct {
	mu    sync.Mutex
	calls int
	dirs  []string
}

func (c *countingIndexer) IndexDirectory(_ context.Context, dir string) (*biz.IndexReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.dirs = append(c.dirs, dir)
	return &biz.IndexReport{Directory: dir}, nil
}

func (c *countingIndexer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(func()) error { return errors.New("pool full") }

func startWatcher(t *testing.T, dir string, idx Indexer, submit Submitter) *Watcher {
	t.Helper()
	w := New(Config{Dir: dir, Debounce: 100 * time.Millisecond}, idx, submit)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	})
	return w
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	idx := &countingIndexer{}
	bg, err := pool.NewPool("background", pool.BackgroundPoolConfig())
	require.NoError(t, err)
	defer bg.Release()

	startWatcher(t, dir, idx, bg)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("vaccines "+string(rune('a'+i))), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return idx.count() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, idx.count())
	assert.Equal(t, []string{dir}, idx.dirs)
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	idx := &countingIndexer{}
	startWatcher(t, dir, idx, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte{0xff}, 0o600))
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, idx.count())
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	idx := &countingIndexer{}
	startWatcher(t, dir, idx, nil)

	sub := filepath.Join(dir, "cats")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return idx.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_PoolRejectionDefersRun(t *testing.T) {
	dir := t.TempDir()
	idx := &countingIndexer{}
	w := startWatcher(t, dir, idx, rejectingSubmitter{})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# fleas"), 0o600))
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, idx.count())
	assert.Equal(t, 0, w.Runs())
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, &countingIndexer{}, nil)
	assert.Error(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop(context.Background()))
}
