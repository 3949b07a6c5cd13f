// Package engine defines the extraction engine contract and its yt-dlp implementation.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine resolves video pages into metadata and performs downloads.
// Implementations return an error for any resolution or download failure.
type Engine interface {
	// Inspect fetches metadata without downloading anything.
	Inspect(ctx context.Context, url string) (*Info, error)
	// Download fetches the given format into outputTemplate. On success the
	// described output file exists on disk.
	Download(ctx context.Context, url, format, outputTemplate string) (*Info, error)
}

// Info is the raw per-video record reported by the engine.
type Info struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Thumbnail      string   `json:"thumbnail"`
	Duration       *float64 `json:"duration"`
	Uploader       string   `json:"uploader"`
	Ext            string   `json:"ext"`
	Filename       string   `json:"filename"`
	LegacyFilename string   `json:"_filename"`
	Formats        []Format `json:"formats"`
}

// OutputPath returns the final file path the engine computed for this result.
func (i *Info) OutputPath() string {
	if i.Filename != "" {
		return i.Filename
	}
	return i.LegacyFilename
}

// Format is one raw format entry. Numeric fields are floats because the
// engine does not guarantee integral JSON numbers.
type Format struct {
	FormatID       string   `json:"format_id"`
	Format         string   `json:"format"`
	Ext            string   `json:"ext"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
	Height         *float64 `json:"height"`
	Width          *float64 `json:"width"`
	FormatNote     string   `json:"format_note"`
	ABR            *float64 `json:"abr"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
}

// ErrNoInfo is returned when the engine exits cleanly without printing a record.
var ErrNoInfo = errors.New("no video information in engine output")

// decodeInfo parses the last JSON object line of the engine's stdout.
func decodeInfo(stdout string) (*Info, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var info Info
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			return nil, fmt.Errorf("failed to parse video info: %w", err)
		}
		return &info, nil
	}

	return nil, ErrNoInfo
}
