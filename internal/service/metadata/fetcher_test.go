package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emanuelef/yt-info-api/internal/domain"
	"github.com/emanuelef/yt-info-api/internal/infra/cache"
	"github.com/emanuelef/yt-info-api/internal/service/engine"
	"github.com/emanuelef/yt-info-api/internal/service/engine/enginetest"
)

func f64(v float64) *float64 { return &v }

func heights(formats []domain.Format) []int {
	out := make([]int, 0, len(formats))
	for _, f := range formats {
		if f.Height == nil {
			out = append(out, 0)
			continue
		}
		out = append(out, *f.Height)
	}
	return out
}

func TestFormatsFiltering(t *testing.T) {
	raw := []engine.Format{
		{FormatID: "sb0", Ext: "mhtml"},
		{FormatID: "only-height", Ext: "mp4", Height: f64(480)},
		{FormatID: "only-size", Ext: "webm", Filesize: f64(2048)},
		{FormatID: "only-approx", Ext: "webm", FilesizeApprox: f64(4096)},
		{FormatID: "only-abr", Ext: "m4a", ABR: f64(129.5)},
		{FormatID: "zeros", Ext: "mp4", Height: f64(0), ABR: f64(0), Filesize: f64(0)},
	}

	got := Formats(raw)

	ids := make([]string, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.FormatID)
	}
	assert.ElementsMatch(t, []string{"only-height", "only-size", "only-approx", "only-abr"}, ids)

	for _, f := range got {
		if f.FormatID == "only-approx" {
			require.NotNil(t, f.Filesize)
			assert.Equal(t, int64(4096), *f.Filesize)
		}
	}
}

func TestFormatsOrdering(t *testing.T) {
	raw := []engine.Format{
		{FormatID: "a", Height: f64(360)},
		{FormatID: "b", Height: f64(1080)},
		{FormatID: "c", Height: f64(720)},
	}
	assert.Equal(t, []int{1080, 720, 360}, heights(Formats(raw)))

	raw = []engine.Format{
		{FormatID: "audio-low", ABR: f64(48)},
		{FormatID: "video", Height: f64(720), ABR: f64(0)},
		{FormatID: "audio-high", ABR: f64(160)},
		{FormatID: "video-with-audio", Height: f64(720), ABR: f64(96)},
	}
	got := Formats(raw)
	require.Len(t, got, 4)
	assert.Equal(t, "video-with-audio", got[0].FormatID)
	assert.Equal(t, "video", got[1].FormatID)
	assert.Equal(t, "audio-high", got[2].FormatID)
	assert.Equal(t, "audio-low", got[3].FormatID)
}

func TestFormatsFallsBackToFormatName(t *testing.T) {
	got := Formats([]engine.Format{{Format: "hls-720p", Height: f64(720)}})
	require.Len(t, got, 1)
	assert.Equal(t, "hls-720p", got[0].FormatID)
}

func TestFetch(t *testing.T) {
	stub := &enginetest.Stub{
		InspectFunc: func(_ context.Context, url string) (*engine.Info, error) {
			assert.Equal(t, "https://www.youtube.com/watch?v=xyz", url)
			return &engine.Info{
				ID:        "xyz",
				Title:     "Sample Title",
				Thumbnail: "https://i.ytimg.com/vi/xyz/hq.jpg",
				Duration:  f64(61),
				Uploader:  "someone",
				Formats: []engine.Format{
					{FormatID: "18", Ext: "mp4", Height: f64(360)},
					{FormatID: "22", Ext: "mp4", Height: f64(720)},
					{FormatID: "sb0", Ext: "mhtml"},
				},
			}, nil
		},
	}

	info, err := NewFetcher(stub, nil).Fetch(context.Background(), "https://youtu.be/xyz?si=share")
	require.NoError(t, err)

	assert.Equal(t, "xyz", info.ID)
	assert.Equal(t, "Sample Title", info.Title)
	assert.Equal(t, "someone", info.Uploader)
	require.NotNil(t, info.Duration)
	assert.Equal(t, 61.0, *info.Duration)
	assert.Equal(t, []int{720, 360}, heights(info.Formats))
}

func TestFetchInvalidInputSkipsEngine(t *testing.T) {
	stub := &enginetest.Stub{}
	fetcher := NewFetcher(stub, nil)

	_, err := fetcher.Fetch(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = fetcher.Fetch(context.Background(), "https://unrelated.example/x")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	assert.Equal(t, 0, stub.InspectCalls())
}

func TestFetchEngineFailure(t *testing.T) {
	stub := &enginetest.Stub{
		InspectFunc: func(context.Context, string) (*engine.Info, error) {
			return nil, errors.New("ERROR: [youtube] xyz: Video unavailable")
		},
	}

	_, err := NewFetcher(stub, nil).Fetch(context.Background(), "https://www.youtube.com/watch?v=xyz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEngineFailure))
	assert.Equal(t, "ERROR: [youtube] xyz: Video unavailable", err.Error())
}

func TestFetchUsesCache(t *testing.T) {
	stub := &enginetest.Stub{
		InspectFunc: func(context.Context, string) (*engine.Info, error) {
			return &engine.Info{ID: "xyz"}, nil
		},
	}
	fetcher := NewFetcher(stub, cache.New(time.Minute))

	for i := 0; i < 3; i++ {
		info, err := fetcher.Fetch(context.Background(), "https://www.youtube.com/shorts/xyz")
		require.NoError(t, err)
		assert.Equal(t, "xyz", info.ID)
	}
	assert.Equal(t, 1, stub.InspectCalls())
}

func TestFetchDoesNotCacheFailures(t *testing.T) {
	stub := &enginetest.Stub{
		InspectFunc: func(context.Context, string) (*engine.Info, error) {
			return nil, errors.New("network down")
		},
	}
	fetcher := NewFetcher(stub, cache.New(time.Minute))

	_, err := fetcher.Fetch(context.Background(), "https://www.youtube.com/watch?v=xyz")
	require.Error(t, err)
	_, err = fetcher.Fetch(context.Background(), "https://www.youtube.com/watch?v=xyz")
	require.Error(t, err)
	assert.Equal(t, 2, stub.InspectCalls())
}
