package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// Config holds the yt-dlp invocation settings.
type Config struct {
	Executable      string        // Path to yt-dlp binary, empty to resolve from PATH
	InfoTimeout     time.Duration // 0 leaves the engine's own defaults in charge
	DownloadTimeout time.Duration // 0 leaves the engine's own defaults in charge
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Executable: "yt-dlp",
	}
}

// YtDlp implements Engine on top of the yt-dlp command line.
type YtDlp struct {
	config *Config
}

// NewYtDlp creates a new yt-dlp engine with the given configuration.
func NewYtDlp(config *Config) *YtDlp {
	if config == nil {
		config = DefaultConfig()
	}
	return &YtDlp{config: config}
}

// Inspect retrieves video metadata without downloading.
func (y *YtDlp) Inspect(ctx context.Context, url string) (*Info, error) {
	ctx, cancel := withTimeout(ctx, y.config.InfoTimeout)
	defer cancel()

	cmd := y.command().
		SkipDownload().
		PrintJSON()

	return y.run(ctx, cmd, url)
}

// Download downloads the requested format to outputTemplate and returns the
// record yt-dlp printed once the file was written.
func (y *YtDlp) Download(ctx context.Context, url, format, outputTemplate string) (*Info, error) {
	ctx, cancel := withTimeout(ctx, y.config.DownloadTimeout)
	defer cancel()

	cmd := y.command().
		Format(format).
		Output(outputTemplate).
		PrintJSON()

	return y.run(ctx, cmd, url)
}

// Check verifies that yt-dlp is installed and accessible.
func (y *YtDlp) Check(ctx context.Context) (string, error) {
	res, err := y.command().Version(ctx)
	if err != nil {
		return "", fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (y *YtDlp) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoPlaylist().
		Quiet().
		NoWarnings()

	if y.config.Executable != "" {
		cmd = cmd.SetExecutable(y.config.Executable)
	}
	return cmd
}

func (y *YtDlp) run(ctx context.Context, cmd *ytdlp.Command, url string) (*Info, error) {
	start := time.Now()
	res, err := cmd.Run(ctx, url)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("yt-dlp timed out")
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, errors.New("yt-dlp was canceled")
		}
		return nil, errors.New(failureMessage(res, err))
	}

	slog.Debug("yt-dlp finished",
		"url", url,
		"duration", time.Since(start).String(),
	)

	return decodeInfo(res.Stdout)
}

// failureMessage prefers what yt-dlp wrote to stderr over the exit status.
func failureMessage(res *ytdlp.Result, err error) string {
	if res != nil {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			return msg
		}
	}
	return err.Error()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
