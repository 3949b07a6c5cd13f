package downloader

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NewToken returns a fresh workspace token: 32 lowercase hex characters from
// a random UUID.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// outputTemplate leaves the extension for the engine to decide.
func (m *Manager) outputTemplate(token string) string {
	return filepath.Join(m.dir, token+".%(ext)s")
}

// tokenFiles lists the non-directory entries of the workspace whose names
// start with token, in directory (lexicographic) order. It never recurses.
func (m *Manager) tokenFiles(token string) []string {
	if token == "" {
		return nil
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		slog.Warn("Failed to list workspace", "dir", m.dir, "error", err)
		return nil
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), token) {
			continue
		}
		paths = append(paths, filepath.Join(m.dir, e.Name()))
	}
	return paths
}

// owns reports whether path names a token file directly inside the workspace.
func (m *Manager) owns(token, path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(m.dir)
	if err != nil {
		return false
	}
	return filepath.Dir(absPath) == absDir && strings.HasPrefix(filepath.Base(absPath), token)
}

// resolve picks the file to serve: the engine's reported path when it exists,
// otherwise the first token file in the workspace.
func (m *Manager) resolve(token, reported string) (string, bool) {
	if reported != "" && m.owns(token, reported) {
		if fi, err := os.Stat(reported); err == nil && fi.Mode().IsRegular() {
			return reported, true
		}
	}

	if matches := m.tokenFiles(token); len(matches) > 0 {
		slog.Debug("Engine path missing, using workspace scan",
			"token", token,
			"reported", reported,
			"picked", matches[0],
			"candidates", len(matches),
		)
		return matches[0], true
	}

	return "", false
}

// Cleanup deletes every workspace file belonging to token and returns how
// many were removed. Deletion errors are ignored.
func (m *Manager) Cleanup(token string) int {
	removed := 0
	for _, path := range m.tokenFiles(token) {
		if err := os.Remove(path); err != nil {
			slog.Debug("Failed to remove workspace file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}
