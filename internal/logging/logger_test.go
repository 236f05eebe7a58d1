package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, date+"_"+string(cat)+".log"))
	require.NoError(t, err)
	return string(data)
}

func TestCategoriesWriteSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{DebugMode: true, LogsDir: dir, Level: "debug"}))
	t.Cleanup(CloseAll)

	Session("created %s", "sess-1")
	ResolveDebug("candidate %s score=%.3f", "아메리카노", 0.91)
	CloseAll()

	assert.Contains(t, readCategoryLog(t, dir, CategorySession), "created sess-1")
	assert.Contains(t, readCategoryLog(t, dir, CategoryResolve), "아메리카노")
}

func TestDisabledModeIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{DebugMode: false, LogsDir: dir}))
	t.Cleanup(CloseAll)

	Ordering("should not appear")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, IsCategoryEnabled(CategoryOrdering))
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{
		DebugMode:  true,
		LogsDir:    dir,
		Categories: map[string]bool{"store": false},
	}))
	t.Cleanup(CloseAll)

	assert.False(t, IsCategoryEnabled(CategoryStore))
	assert.True(t, IsCategoryEnabled(CategorySession))
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{DebugMode: true, LogsDir: dir, Level: "warn"}))
	t.Cleanup(CloseAll)

	Get(CategoryParse).Info("hidden info")
	Get(CategoryParse).Warn("visible warn")
	CloseAll()

	content := readCategoryLog(t, dir, CategoryParse)
	assert.False(t, strings.Contains(content, "hidden info"))
	assert.Contains(t, content, "visible warn")
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(Options{DebugMode: true, LogsDir: dir, JSONFormat: true}))
	t.Cleanup(CloseAll)

	Get(CategoryStore).StructuredLog("info", "session saved", map[string]interface{}{"version": 3})
	CloseAll()

	content := readCategoryLog(t, dir, CategoryStore)
	assert.Contains(t, content, `"msg":"session saved"`)
	assert.Contains(t, content, `"version":3`)
}

func TestTimerReturnsElapsed(t *testing.T) {
	timer := StartTimer(CategoryPerformance, "noop")
	assert.GreaterOrEqual(t, int64(timer.Stop()), int64(0))
}
