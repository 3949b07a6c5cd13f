// Package http provides HTTP handlers and router configuration.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/emanuelef/yt-info-api/internal/domain"
	"github.com/emanuelef/yt-info-api/internal/infra/r2"
	"github.com/emanuelef/yt-info-api/internal/service/downloader"
)

// InfoFetcher returns shaped metadata for a video URL.
type InfoFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.VideoInfo, error)
}

// Downloader runs a download and returns the file to stream.
type Downloader interface {
	Download(ctx context.Context, url, formatID string) (*downloader.File, error)
}

// JournalReader looks up journaled downloads.
type JournalReader interface {
	GetByToken(ctx context.Context, token string) (*domain.DownloadRecord, error)
}

// Handoff publishes a finished file and returns the URL clients fetch it from.
type Handoff interface {
	Publish(ctx context.Context, key, filePath, fileName, contentType string) (string, error)
}

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	fetcher    InfoFetcher
	downloader Downloader
	journal    JournalReader
	handoff    Handoff
}

// NewHandlers creates a new Handlers instance. journal and handoff may be nil;
// without a handoff, downloads are streamed in the response body.
func NewHandlers(fetcher InfoFetcher, dl Downloader, journal JournalReader, handoff Handoff) *Handlers {
	return &Handlers{
		fetcher:    fetcher,
		downloader: dl,
		journal:    journal,
		handoff:    handoff,
	}
}

// HealthHandler handles GET /api/health requests.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &domain.HealthResponse{Status: "ok"})
}

// VideoInfoHandler handles GET /api/videoinfo?url= requests.
func (h *Handlers) VideoInfoHandler(w http.ResponseWriter, r *http.Request) {
	info, err := h.fetcher.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		slog.Warn("Video info request failed",
			"error", err,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
		writeServiceError(w, err, "FETCH_ERROR", "Failed to fetch video info: ")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// DownloadHandler handles GET /api/download?url=&format_id= requests. The
// request's workspace files are removed once the response is written.
func (h *Handlers) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	reqID := chimiddleware.GetReqID(r.Context())

	file, err := h.downloader.Download(r.Context(), query.Get("url"), query.Get("format_id"))
	if err != nil {
		slog.Warn("Download request failed",
			"error", err,
			"request_id", reqID,
		)
		writeServiceError(w, err, "DOWNLOAD_ERROR", "Download failed: ")
		return
	}
	defer file.Close()

	if h.handoff != nil {
		key := r2.ObjectKey(file.Token, filepath.Ext(file.Path))
		url, err := h.handoff.Publish(r.Context(), key, file.Path, file.Name, file.ContentType)
		if err != nil {
			file.Fail(err)
			slog.Error("Handoff failed",
				"error", err,
				"token", file.Token,
				"request_id", reqID,
			)
			writeError(w, http.StatusInternalServerError, "Download failed: "+err.Error(), "DOWNLOAD_ERROR")
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, file)
	if err != nil {
		file.Fail(err)
		slog.Warn("Streaming interrupted",
			"error", err,
			"token", file.Token,
			"written", written,
			"size", file.Size,
			"request_id", reqID,
		)
		return
	}

	slog.Info("Download served",
		"token", file.Token,
		"name", file.Name,
		"size", written,
		"request_id", reqID,
	)
}

// DownloadStatusHandler handles GET /api/downloads/{token} requests.
func (h *Handlers) DownloadStatusHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !tokenPattern.MatchString(token) {
		writeError(w, http.StatusBadRequest, "invalid token format", "INVALID_TOKEN")
		return
	}

	if h.journal == nil {
		writeError(w, http.StatusNotFound, "download not found", "NOT_FOUND")
		return
	}

	rec, err := h.journal.GetByToken(r.Context(), token)
	if err != nil {
		slog.Error("Failed to get download record",
			"error", err,
			"token", token,
		)
		writeError(w, http.StatusInternalServerError, "failed to get download status", "DB_ERROR")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "download not found", "NOT_FOUND")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Helper functions

// writeServiceError maps fetcher and manager errors onto the JSON envelope.
// Engine messages are passed through after prefix.
func writeServiceError(w http.ResponseWriter, err error, engineCode, prefix string) {
	var inputErr *domain.InputError
	var engineErr *domain.EngineError

	switch {
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, inputErr.Reason, inputErr.Code)
	case errors.Is(err, domain.ErrOutputMissing):
		writeError(w, http.StatusInternalServerError, "Downloaded file not found", "OUTPUT_MISSING")
	case errors.As(err, &engineErr):
		writeError(w, http.StatusInternalServerError, prefix+engineErr.Message, engineCode)
	default:
		writeError(w, http.StatusInternalServerError, prefix+err.Error(), engineCode)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, &domain.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
