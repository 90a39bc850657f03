package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latoulicious/Musho/pkg/logging"
)

type testLogger struct{}

func newTestLogger() logging.Logger { return &testLogger{} }

func (l *testLogger) Info(msg string, fields map[string]interface{})             {}
func (l *testLogger) Error(msg string, err error, fields map[string]interface{}) {}
func (l *testLogger) Warn(msg string, fields map[string]interface{})             {}
func (l *testLogger) Debug(msg string, fields map[string]interface{})            {}
func (l *testLogger) WithPipeline(pipeline string) logging.Logger                { return l }
func (l *testLogger) WithContext(ctx map[string]interface{}) logging.Logger {
	return l
}

func makeScratchFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
	return path
}

func fileGone(path string) func() bool {
	return func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}
}

func TestFileRegistryDeletesAtZero(t *testing.T) {
	dir := t.TempDir()
	path := makeScratchFile(t, dir, "a.mp3")
	r := NewFileRegistry(newTestLogger())

	r.Retain(path)
	r.Retain(path)
	assert.Equal(t, 2, r.Count(path))

	r.Release(path)
	time.Sleep(50 * time.Millisecond)
	_, err := os.Stat(path)
	assert.NoError(t, err, "file must survive while still referenced")

	r.Release(path)
	assert.Eventually(t, fileGone(path), 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, r.Count(path))
}

func TestFileRegistryUntrackedRelease(t *testing.T) {
	r := NewFileRegistry(newTestLogger())
	assert.NotPanics(t, func() {
		r.Release("/nonexistent/path.mp3")
		r.Release("")
		r.Retain("")
	})
}

func TestFileRegistrySharedFileAcrossEntries(t *testing.T) {
	dir := t.TempDir()
	path := makeScratchFile(t, dir, "shared.mp3")
	r := NewFileRegistry(newTestLogger())

	// Two logical queue entries backed by the same file.
	r.Retain(path)
	r.Retain(path)
	r.Release(path)
	r.Release(path)

	assert.Eventually(t, fileGone(path), 2*time.Second, 10*time.Millisecond)
}
