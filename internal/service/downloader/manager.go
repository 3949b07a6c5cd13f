// Package downloader runs one download request end to end: workspace token,
// engine invocation, output resolution, and cleanup of every file the
// request produced.
package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/emanuelef/yt-info-api/internal/domain"
	"github.com/emanuelef/yt-info-api/internal/service/engine"
	"github.com/emanuelef/yt-info-api/internal/service/urlnorm"
)

// Journal records download attempts. Failures are logged and never change
// the outcome of a request.
type Journal interface {
	Create(ctx context.Context, rec *domain.DownloadRecord) error
	Update(ctx context.Context, rec *domain.DownloadRecord) error
}

// Config holds the lifecycle manager settings.
type Config struct {
	WorkspaceDir  string // Single directory shared by all requests
	DefaultFormat string // Format selector used when the request names none
	DefaultExt    string // Used when neither the file nor the engine names an extension
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() *Config {
	return &Config{
		WorkspaceDir:  "./tmp",
		DefaultFormat: domain.DefaultFormatID,
		DefaultExt:    "mp4",
	}
}

// Manager orchestrates downloads. It holds no per-request state, so one
// Manager serves all requests concurrently.
type Manager struct {
	engine        engine.Engine
	dir           string
	defaultFormat string
	defaultExt    string
	journal       Journal
	newToken      func() string
}

// NewManager creates the workspace directory and returns a Manager.
// journal may be nil.
func NewManager(e engine.Engine, config *Config, journal Journal) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := os.MkdirAll(config.WorkspaceDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	defaultExt := config.DefaultExt
	if defaultExt == "" {
		defaultExt = "mp4"
	}

	defaultFormat := config.DefaultFormat
	if defaultFormat == "" {
		defaultFormat = domain.DefaultFormatID
	}

	return &Manager{
		engine:        e,
		dir:           config.WorkspaceDir,
		defaultFormat: defaultFormat,
		defaultExt:    defaultExt,
		journal:       journal,
		newToken:      NewToken,
	}, nil
}

// Dir returns the workspace directory.
func (m *Manager) Dir() string {
	return m.dir
}

// File is a resolved download ready to be streamed. Close must be called
// once the bytes have been handed off; it deletes the request's files.
type File struct {
	Token       string
	Path        string
	Name        string // Suggested download file name
	Title       string
	ContentType string
	Size        int64
	ModTime     time.Time

	file    *os.File
	failure error
	once    sync.Once
	release func(failure error)
}

// Read reads from the open handle.
func (f *File) Read(p []byte) (int, error) {
	return f.file.Read(p)
}

// Fail records why handing the file off did not complete. It must be called
// before Close.
func (f *File) Fail(err error) {
	f.failure = err
}

// Close closes the handle and removes every workspace file of the request.
// It is safe to call more than once.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		err = f.file.Close()
		f.release(f.failure)
	})
	return err
}

// Download validates rawURL, downloads formatID (the default when empty) into the
// workspace and returns the resolved file. On any error, including a panic
// in the engine, the request's files are removed before Download returns.
func (m *Manager) Download(ctx context.Context, rawURL, formatID string) (_ *File, err error) {
	if strings.TrimSpace(formatID) == "" {
		formatID = m.defaultFormat
	}
	req := domain.NewDownloadRequest(rawURL, formatID)

	url, err := urlnorm.Prepare(req.URL)
	if err != nil {
		return nil, err
	}
	req.URL = url

	token := m.newToken()
	rec := domain.NewDownloadRecord(token, req)
	m.record(ctx, rec, true)

	handedOff := false
	defer func() {
		if handedOff {
			return
		}
		removed := m.Cleanup(token)
		slog.Debug("Workspace cleaned", "token", token, "removed", removed)
		if err != nil {
			rec.MarkFailed(err.Error())
			m.record(context.WithoutCancel(ctx), rec, false)
		}
	}()

	slog.Info("Download started",
		"token", token,
		"url", url,
		"format_id", req.FormatID,
	)

	info, err := m.engine.Download(ctx, url, req.FormatID, m.outputTemplate(token))
	if err != nil {
		return nil, &domain.EngineError{Op: "download", Message: err.Error()}
	}

	path, ok := m.resolve(token, info.OutputPath())
	if !ok {
		return nil, domain.ErrOutputMissing
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOutputMissing, err)
	}
	stat, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrOutputMissing, err)
	}

	name := DownloadName(info.Title, token, path, info.Ext, m.defaultExt)
	rec.MarkReady(info.Title, name, stat.Size())
	m.record(ctx, rec, false)

	slog.Info("Download ready",
		"token", token,
		"file", filepath.Base(path),
		"name", name,
		"size", stat.Size(),
	)

	handedOff = true
	return &File{
		Token:       token,
		Path:        path,
		Name:        name,
		Title:       info.Title,
		ContentType: ContentType(path),
		Size:        stat.Size(),
		ModTime:     stat.ModTime(),
		file:        fh,
		release: func(failure error) {
			m.Cleanup(token)
			if failure != nil {
				rec.MarkFailed(failure.Error())
			} else {
				rec.MarkServed()
			}
			m.record(context.WithoutCancel(ctx), rec, false)
		},
	}, nil
}

// record writes rec to the journal, if any.
func (m *Manager) record(ctx context.Context, rec *domain.DownloadRecord, create bool) {
	if m.journal == nil {
		return
	}

	var err error
	if create {
		err = m.journal.Create(ctx, rec)
	} else {
		err = m.journal.Update(ctx, rec)
	}
	if err != nil {
		slog.Warn("Failed to journal download",
			"token", rec.Token,
			"status", rec.Status,
			"error", err,
		)
	}
}

// DownloadName builds the suggested file name: the title with path
// separators replaced, plus the file's extension, falling back to the
// engine-reported extension and then defaultExt. An empty title is replaced
// by token.
func DownloadName(title, token, path, reportedExt, defaultExt string) string {
	base := strings.TrimSpace(title)
	if base == "" {
		base = token
	}
	base = strings.NewReplacer("/", "_", `\`, "_").Replace(base)

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = strings.TrimPrefix(reportedExt, ".")
	}
	if ext == "" {
		ext = defaultExt
	}

	return base + "." + ext
}
