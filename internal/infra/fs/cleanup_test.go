package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) DeleteOlderThan(context.Context, time.Duration) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) DeleteOlderThan(context.Context, time.Duration) (int64, error) {
	p.calls.Add(1)
	return 1, nil
}

const (
	tokenA = "0123456789abcdef0123456789abcdef"
	tokenB = "fedcba9876543210fedcba9876543210"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSweepLocal(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, tokenA+".mp4"), 2*time.Hour)
	writeAged(t, filepath.Join(dir, tokenB+".f137.mp4.part"), time.Minute)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeAged(t, filepath.Join(dir, "nested", tokenA+".webm"), 2*time.Hour)

	c := NewCleaner(&CleanerConfig{LocalDir: dir, LocalMaxAge: time.Hour})

	assert.Equal(t, 1, c.SweepLocal())

	_, err := os.Stat(filepath.Join(dir, tokenA+".mp4"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, tokenB+".f137.mp4.part"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "nested", tokenA+".webm"))
	assert.NoError(t, err)
}

func TestSweepLocalLeavesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	foreign := []string{
		"notes.txt",
		"backup.mp4",
		"0123456789ABCDEF0123456789ABCDEF.mp4", // uppercase hex is not a token
		"0123456789abcdef.mp4",                 // too short
	}
	for _, name := range foreign {
		writeAged(t, filepath.Join(dir, name), 48*time.Hour)
	}
	writeAged(t, filepath.Join(dir, tokenB+".webm"), 48*time.Hour)

	c := NewCleaner(&CleanerConfig{LocalDir: dir, LocalMaxAge: time.Hour})

	assert.Equal(t, 1, c.SweepLocal())
	for _, name := range foreign {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestSweepLocalMissingDir(t *testing.T) {
	c := NewCleaner(&CleanerConfig{LocalDir: filepath.Join(t.TempDir(), "gone"), LocalMaxAge: time.Hour})
	assert.Equal(t, 0, c.SweepLocal())
}

func TestStartRunsSweepsUntilStopped(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, tokenA+".webm"), 2*time.Hour)

	remote := &countingSweeper{}
	journal := &countingPruner{}
	c := NewCleaner(&CleanerConfig{
		LocalDir:       dir,
		LocalMaxAge:    time.Hour,
		LocalInterval:  10 * time.Millisecond,
		Remote:         remote,
		RemoteMaxAge:   time.Hour,
		RemoteInterval: 10 * time.Millisecond,
		Journal:        journal,
		JournalMaxAge:  24 * time.Hour,
	})

	c.Start(context.Background())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, tokenA+".webm"))
		return os.IsNotExist(err) && remote.calls.Load() > 0 && journal.calls.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	c.Stop()
}
