package patterns

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	require.NoError(t, err)

	w, err := NewWatcher(c)
	require.NoError(t, err)
	w.debounceDur = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, TemperatureFile),
		[]byte(`{"default_temperature": "ice"}`), 0o644))

	assert.Eventually(t, func() bool {
		return c.Current().Config.DefaultTemperature == "ice"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir)
	require.NoError(t, err)

	w, err := NewWatcher(c)
	require.NoError(t, err)
	w.debounceDur = 10 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	w.Stop()

	assert.EqualValues(t, 1, c.Reloads())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	c, err := NewCache("")
	require.NoError(t, err)
	w, err := NewWatcher(c)
	require.NoError(t, err)
	w.Stop()
}
