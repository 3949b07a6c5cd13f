// Package enginetest provides a scriptable engine.Engine for tests.
package enginetest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emanuelef/yt-info-api/internal/service/engine"
)

// ErrNotScripted is returned by calls the test did not script.
var ErrNotScripted = errors.New("enginetest: call not scripted")

// Stub records calls and delegates to the scripted functions.
type Stub struct {
	InspectFunc  func(ctx context.Context, url string) (*engine.Info, error)
	DownloadFunc func(ctx context.Context, url, format, outputTemplate string) (*engine.Info, error)

	mu            sync.Mutex
	inspectCalls  int
	downloadCalls int
	templates     []string
	formats       []string
}

// Inspect implements engine.Engine.
func (s *Stub) Inspect(ctx context.Context, url string) (*engine.Info, error) {
	s.mu.Lock()
	s.inspectCalls++
	s.mu.Unlock()

	if s.InspectFunc == nil {
		return nil, ErrNotScripted
	}
	return s.InspectFunc(ctx, url)
}

// Download implements engine.Engine.
func (s *Stub) Download(ctx context.Context, url, format, outputTemplate string) (*engine.Info, error) {
	s.mu.Lock()
	s.downloadCalls++
	s.templates = append(s.templates, outputTemplate)
	s.formats = append(s.formats, format)
	s.mu.Unlock()

	if s.DownloadFunc == nil {
		return nil, ErrNotScripted
	}
	return s.DownloadFunc(ctx, url, format, outputTemplate)
}

// InspectCalls returns how many times Inspect was called.
func (s *Stub) InspectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspectCalls
}

// DownloadCalls returns how many times Download was called.
func (s *Stub) DownloadCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadCalls
}

// Templates returns the output templates passed to Download, in call order.
func (s *Stub) Templates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.templates...)
}

// Formats returns the format selectors passed to Download, in call order.
func (s *Stub) Formats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.formats...)
}

// Expand fills the %(ext)s placeholder of an output template.
func Expand(outputTemplate, ext string) string {
	return strings.ReplaceAll(outputTemplate, "%(ext)s", ext)
}

// Token extracts the workspace token from an output template.
func Token(outputTemplate string) string {
	return strings.TrimSuffix(filepath.Base(outputTemplate), ".%(ext)s")
}

// WriteFile creates a file next to the template's target, named with the
// template's token followed by suffix.
func WriteFile(outputTemplate, suffix string, content []byte) (string, error) {
	path := filepath.Join(filepath.Dir(outputTemplate), Token(outputTemplate)+suffix)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", err
	}
	return path, nil
}
