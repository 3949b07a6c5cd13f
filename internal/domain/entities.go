// Package domain contains the core business entities and types.
package domain

import (
	"strings"
	"time"
)

// DefaultFormatID is the format selector used when a request does not name one.
const DefaultFormatID = "best"

// DownloadStatus represents the current state of a journaled download.
type DownloadStatus string

const (
	DownloadStatusStarted DownloadStatus = "started"
	DownloadStatusReady   DownloadStatus = "ready"
	DownloadStatusServed  DownloadStatus = "served"
	DownloadStatusFailed  DownloadStatus = "failed"
)

// DownloadRequest is a parsed download call. It is not modified after parsing.
type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// NewDownloadRequest trims its inputs and applies the default format.
func NewDownloadRequest(url, formatID string) DownloadRequest {
	url = strings.TrimSpace(url)
	formatID = strings.TrimSpace(formatID)
	if formatID == "" {
		formatID = DefaultFormatID
	}
	return DownloadRequest{URL: url, FormatID: formatID}
}

// DownloadRecord is one journaled download attempt. It never holds media.
type DownloadRecord struct {
	Token       string         `json:"token"`
	URL         string         `json:"url"`
	FormatID    string         `json:"format_id"`
	Status      DownloadStatus `json:"status"`
	Title       string         `json:"title,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	SizeBytes   int64          `json:"size_bytes,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewDownloadRecord creates a started record for the given token and request.
func NewDownloadRecord(token string, req DownloadRequest) *DownloadRecord {
	return &DownloadRecord{
		Token:     token,
		URL:       req.URL,
		FormatID:  req.FormatID,
		Status:    DownloadStatusStarted,
		CreatedAt: time.Now().UTC(),
	}
}

// MarkReady records that the output file was resolved and is about to be served.
func (r *DownloadRecord) MarkReady(title, fileName string, size int64) {
	r.Status = DownloadStatusReady
	r.Title = title
	r.FileName = fileName
	r.SizeBytes = size
}

// MarkServed records that the file was handed to the client.
func (r *DownloadRecord) MarkServed() {
	r.Status = DownloadStatusServed
	now := time.Now().UTC()
	r.CompletedAt = &now
}

// MarkFailed records the failure message.
func (r *DownloadRecord) MarkFailed(err string) {
	r.Status = DownloadStatusFailed
	r.Error = err
	now := time.Now().UTC()
	r.CompletedAt = &now
}

// Format describes one selectable audio/video stream variant.
// Nullable fields encode as JSON null when the engine did not report them.
type Format struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Filesize   *int64   `json:"filesize"`
	Height     *int     `json:"height"`
	Width      *int     `json:"width"`
	FormatNote string   `json:"format_note"`
	ABR        *float64 `json:"abr"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
}

// VideoInfo contains the client-facing metadata about a video.
type VideoInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Duration  *float64 `json:"duration"` // in seconds
	Uploader  string   `json:"uploader"`
	Formats   []Format `json:"formats"`
}

// HealthResponse represents the response for a health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
