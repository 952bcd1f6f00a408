package flvmeta

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/go-flvmeta/internal/amf"
)

func TestWatcherUpdatesQuietFiles(t *testing.T) {
	dir := t.TempDir()
	type update struct {
		path string
		err  error
	}
	updates := make(chan update, 8)

	w, err := NewWatcher(dir, WatchOptions{
		Quiet:   50 * time.Millisecond,
		Options: testOptions(),
		OnUpdate: func(path string, res Result, err error) {
			updates <- update{path: path, err: err}
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	path := filepath.Join(dir, "clip.flv")
	require.NoError(t, os.WriteFile(path, buildFLV(t, audioTag(0), videoTag(0, true)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	select {
	case u := <-updates:
		require.NoError(t, u.err)
		assert.Equal(t, "clip.flv", filepath.Base(u.path))
	case <-time.After(5 * time.Second):
		t.Fatal("file was not updated")
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	value, err := ReadMetadata(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotNil(t, value)

	// Our own rename must not trigger another round.
	select {
	case u := <-updates:
		t.Fatalf("unexpected second update of %s", u.path)
	case <-time.After(300 * time.Millisecond):
	}
}

func metadataDate(t *testing.T, path string) amf.Date {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	value, err := ReadMetadata(bytes.NewReader(data))
	require.NoError(t, err)
	meta, ok := value.(*amf.ECMAArray)
	require.True(t, ok)
	v, ok := meta.Get("metadatadate")
	require.True(t, ok)
	date, ok := v.(amf.Date)
	require.True(t, ok)
	return date
}

func TestWatcherStampsEachUpdate(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, WatchOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { w.fs.Close() })
	assert.True(t, w.opts.Options.Now.IsZero())

	first := filepath.Join(dir, "first.flv")
	second := filepath.Join(dir, "second.flv")
	in := buildFLV(t, audioTag(0), videoTag(0, true))
	require.NoError(t, os.WriteFile(first, in, 0o644))
	require.NoError(t, os.WriteFile(second, in, 0o644))

	w.update(first)
	time.Sleep(20 * time.Millisecond)
	w.update(second)

	a, b := metadataDate(t, first), metadataDate(t, second)
	assert.Greater(t, b.Millis, a.Millis)
}

func TestNewWatcherRejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.flv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := NewWatcher(path, WatchOptions{})
	assert.Error(t, err)
}

func TestWatchedNames(t *testing.T) {
	assert.True(t, watched("/tmp/a.flv"))
	assert.True(t, watched("/tmp/B.FLV"))
	assert.False(t, watched("/tmp/.flvmeta-123.tmp"))
	assert.False(t, watched("/tmp/.hidden.flv"))
	assert.False(t, watched("/tmp/a.mp4"))
}
