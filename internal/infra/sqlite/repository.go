// Package sqlite provides the SQLite-backed download journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/emanuelef/yt-info-api/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update targets an unknown token.
var ErrNotFound = errors.New("download record not found")

// Repository records download attempts. It stores request bookkeeping only.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) downloads.db in dataDir.
func NewRepository(dataDir string) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "downloads.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := configureDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Download journal opened", "path", dbPath)

	return &Repository{db: db}, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS downloads (
			token TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			format_id TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT,
			file_name TEXT,
			size_bytes INTEGER DEFAULT 0,
			error TEXT,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new record.
func (r *Repository) Create(ctx context.Context, rec *domain.DownloadRecord) error {
	query := `
		INSERT INTO downloads (token, url, format_id, status, title, file_name, size_bytes, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.Token,
		rec.URL,
		rec.FormatID,
		rec.Status,
		rec.Title,
		rec.FileName,
		rec.SizeBytes,
		rec.Error,
		rec.CreatedAt,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create download record: %w", err)
	}

	return nil
}

// Update stores the mutable fields of an existing record.
func (r *Repository) Update(ctx context.Context, rec *domain.DownloadRecord) error {
	query := `
		UPDATE downloads
		SET status = ?, title = ?, file_name = ?, size_bytes = ?, error = ?, completed_at = ?
		WHERE token = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Status,
		rec.Title,
		rec.FileName,
		rec.SizeBytes,
		rec.Error,
		rec.CompletedAt,
		rec.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to update download record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.Token)
	}

	return nil
}

// GetByToken returns the record for token, or nil when there is none.
func (r *Repository) GetByToken(ctx context.Context, token string) (*domain.DownloadRecord, error) {
	query := `
		SELECT token, url, format_id, status, title, file_name, size_bytes, error, created_at, completed_at
		FROM downloads
		WHERE token = ?
	`

	rec := &domain.DownloadRecord{}
	var title, fileName, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.Token,
		&rec.URL,
		&rec.FormatID,
		&rec.Status,
		&title,
		&fileName,
		&rec.SizeBytes,
		&errorMsg,
		&rec.CreatedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download record: %w", err)
	}

	rec.Title = title.String
	rec.FileName = fileName.String
	rec.Error = errorMsg.String
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}

	return rec, nil
}

// DeleteOlderThan prunes records created before now-age.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-age)

	result, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old download records: %w", err)
	}

	return result.RowsAffected()
}
