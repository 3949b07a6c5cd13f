// Package fs provides age-based background cleanup of download leftovers.
package fs

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// tokenName matches files a download wrote: a 32-character hex token prefix.
var tokenName = regexp.MustCompile(`^[0-9a-f]{32}`)

// RemoteSweeper deletes handoff objects older than age.
type RemoteSweeper interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// JournalPruner deletes journal records older than age.
type JournalPruner interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// CleanerConfig holds configuration for the cleaner. A zero interval
// disables the corresponding sweep.
type CleanerConfig struct {
	LocalDir      string
	LocalMaxAge   time.Duration
	LocalInterval time.Duration

	Remote         RemoteSweeper
	RemoteMaxAge   time.Duration
	RemoteInterval time.Duration

	Journal       JournalPruner
	JournalMaxAge time.Duration
}

// Cleaner removes files left behind by requests that never reached their own
// cleanup, such as after a crash. Request-scoped cleanup stays the primary
// mechanism.
type Cleaner struct {
	cfg    CleanerConfig
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCleaner creates a new Cleaner.
func NewCleaner(cfg *CleanerConfig) *Cleaner {
	return &Cleaner{
		cfg:    *cfg,
		stopCh: make(chan struct{}),
	}
}

// Start starts the cleanup goroutines.
func (c *Cleaner) Start(ctx context.Context) {
	if c.cfg.LocalDir != "" && c.cfg.LocalInterval > 0 {
		slog.Info("Starting workspace sweeper",
			"dir", c.cfg.LocalDir,
			"max_age", c.cfg.LocalMaxAge,
			"interval", c.cfg.LocalInterval,
		)
		c.every(ctx, c.cfg.LocalInterval, true, func(ctx context.Context) {
			c.SweepLocal()
			c.pruneJournal(ctx)
		})
	}

	if c.cfg.Remote != nil && c.cfg.RemoteInterval > 0 {
		slog.Info("Starting handoff sweeper",
			"max_age", c.cfg.RemoteMaxAge,
			"interval", c.cfg.RemoteInterval,
		)
		c.every(ctx, c.cfg.RemoteInterval, false, c.sweepRemote)
	}
}

// Stop stops the cleanup goroutines and waits for them to exit.
func (c *Cleaner) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Cleaner) every(ctx context.Context, interval time.Duration, now bool, fn func(context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if now {
			fn(ctx)
		}

		for {
			select {
			case <-ticker.C:
				fn(ctx)
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			}
		}
	}()
}

// SweepLocal deletes token-named regular files directly inside the workspace
// that were last modified before now-LocalMaxAge. Other files are left alone
// even when the workspace is a shared directory. It returns the number deleted.
func (c *Cleaner) SweepLocal() int {
	entries, err := os.ReadDir(c.cfg.LocalDir)
	if err != nil {
		slog.Error("Workspace sweep failed", "dir", c.cfg.LocalDir, "error", err)
		return 0
	}

	threshold := time.Now().Add(-c.cfg.LocalMaxAge)
	deleted := 0

	for _, e := range entries {
		if !e.Type().IsRegular() || !tokenName.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(threshold) {
			continue
		}

		path := filepath.Join(c.cfg.LocalDir, e.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("Failed to delete stale workspace file", "path", path, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("Workspace sweep completed",
			"deleted", deleted,
			"max_age", c.cfg.LocalMaxAge,
		)
	}
	return deleted
}

func (c *Cleaner) sweepRemote(ctx context.Context) {
	deleted, err := c.cfg.Remote.DeleteOlderThan(ctx, c.cfg.RemoteMaxAge)
	if err != nil {
		slog.Error("Handoff sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Handoff sweep completed",
			"deleted", deleted,
			"max_age", c.cfg.RemoteMaxAge,
		)
	}
}

func (c *Cleaner) pruneJournal(ctx context.Context) {
	if c.cfg.Journal == nil || c.cfg.JournalMaxAge <= 0 {
		return
	}
	deleted, err := c.cfg.Journal.DeleteOlderThan(ctx, c.cfg.JournalMaxAge)
	if err != nil {
		slog.Error("Journal prune failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Debug("Journal pruned", "deleted", deleted)
	}
}
