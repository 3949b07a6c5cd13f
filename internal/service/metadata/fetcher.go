// Package metadata turns engine inspection results into client-facing video info.
package metadata

import (
	"context"
	"log/slog"
	"sort"

	"github.com/emanuelef/yt-info-api/internal/domain"
	"github.com/emanuelef/yt-info-api/internal/service/engine"
	"github.com/emanuelef/yt-info-api/internal/service/urlnorm"
)

// Cache stores shaped results by canonical URL.
type Cache interface {
	Get(url string) (*domain.VideoInfo, bool)
	Set(url string, info *domain.VideoInfo)
}

// Fetcher inspects videos through the engine.
type Fetcher struct {
	engine engine.Engine
	cache  Cache
}

// NewFetcher creates a Fetcher. cache may be nil.
func NewFetcher(e engine.Engine, cache Cache) *Fetcher {
	return &Fetcher{engine: e, cache: cache}
}

// Fetch validates rawURL and returns its metadata with formats filtered and
// sorted best first. Engine failures come back as *domain.EngineError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.VideoInfo, error) {
	url, err := urlnorm.Prepare(rawURL)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if info, ok := f.cache.Get(url); ok {
			slog.Debug("Video info cache hit", "url", url)
			return info, nil
		}
	}

	raw, err := f.engine.Inspect(ctx, url)
	if err != nil {
		return nil, &domain.EngineError{Op: "inspect", Message: err.Error()}
	}

	info := &domain.VideoInfo{
		ID:        raw.ID,
		Title:     raw.Title,
		Thumbnail: raw.Thumbnail,
		Duration:  raw.Duration,
		Uploader:  raw.Uploader,
		Formats:   Formats(raw.Formats),
	}

	if f.cache != nil {
		f.cache.Set(url, info)
	}

	return info, nil
}

// Formats maps raw entries to descriptors, drops entries with no size, height
// or audio bitrate, and orders the rest by height then bitrate, descending.
// Entries that compare equal keep their engine order.
func Formats(raw []engine.Format) []domain.Format {
	formats := make([]domain.Format, 0, len(raw))

	for _, r := range raw {
		f := domain.Format{
			FormatID:   r.FormatID,
			Ext:        r.Ext,
			Filesize:   toInt64(firstPositive(r.Filesize, r.FilesizeApprox)),
			Height:     toInt(positive(r.Height)),
			Width:      toInt(positive(r.Width)),
			FormatNote: r.FormatNote,
			ABR:        positive(r.ABR),
			VCodec:     r.VCodec,
			ACodec:     r.ACodec,
		}
		if f.FormatID == "" {
			f.FormatID = r.Format
		}

		if f.Filesize == nil && f.Height == nil && f.ABR == nil {
			continue
		}
		formats = append(formats, f)
	}

	sort.SliceStable(formats, func(i, j int) bool {
		hi, hj := intOrZero(formats[i].Height), intOrZero(formats[j].Height)
		if hi != hj {
			return hi > hj
		}
		return floatOrZero(formats[i].ABR) > floatOrZero(formats[j].ABR)
	})

	return formats
}

// positive treats zero and negative values as not reported.
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func firstPositive(vs ...*float64) *float64 {
	for _, v := range vs {
		if p := positive(v); p != nil {
			return p
		}
	}
	return nil
}

func toInt64(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toInt(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
