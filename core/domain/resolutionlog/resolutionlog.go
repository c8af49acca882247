// Package resolutionlog persists the history of paths resolved through the HTTP API.
package resolutionlog

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed-width so text ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MethodNone marks an entry whose path could not be routed.
const MethodNone = "none"

// Entry records the outcome of one resolution.
type Entry struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	ServiceName  string    `json:"service_name,omitempty"`
	Method       string    `json:"method"`
	URL          string    `json:"url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// NewEntry creates an entry with a fresh ID and the current time.
func NewEntry(path, serviceName, method, url, errorMsg string) Entry {
	return Entry{
		ID:           uuid.New().String(),
		Path:         path,
		ServiceName:  serviceName,
		Method:       method,
		URL:          url,
		ErrorMessage: errorMsg,
		ResolvedAt:   time.Now().UTC(),
	}
}

// Repository handles persistence of resolution log entries.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository over db. A nil db turns every call into a no-op.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores an entry.
func (r *Repository) Create(e Entry) error {
	if r == nil || r.db == nil {
		return nil
	}

	_, err := r.db.Exec(`
		INSERT INTO resolution_logs (id, path, service_name, method, url, error_message, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Path, nullable(e.ServiceName), e.Method, nullable(e.URL), nullable(e.ErrorMessage),
		e.ResolvedAt.UTC().Format(timeLayout),
	)
	return err
}

// Recent returns up to limit entries, most recent first.
func (r *Repository) Recent(limit int) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT id, path, service_name, method, url, error_message, resolved_at
		FROM resolution_logs
		ORDER BY resolved_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByService returns up to limit entries routed to serviceName, most recent first.
func (r *Repository) ByService(serviceName string, limit int) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT id, path, service_name, method, url, error_message, resolved_at
		FROM resolution_logs
		WHERE service_name = ?
		ORDER BY resolved_at DESC, rowid DESC
		LIMIT ?
	`, serviceName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                          Entry
			serviceName, url, errorMsg sql.NullString
			resolvedAt                 string
		)
		if err := rows.Scan(&e.ID, &e.Path, &serviceName, &e.Method, &url, &errorMsg, &resolvedAt); err != nil {
			return nil, err
		}
		e.ServiceName = serviceName.String
		e.URL = url.String
		e.ErrorMessage = errorMsg.String
		if t, err := time.Parse(timeLayout, resolvedAt); err == nil {
			e.ResolvedAt = t
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
