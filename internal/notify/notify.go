// Package notify records render-complete callbacks sent by the rendering
// provider. Entries are kept for inspection only; no wizard session reads them.
package notify

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

const (
	DefaultMax = 200
	fileName   = "notifications.json"
)

// Notification is one render-complete callback.
type Notification struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Store is a bounded, optionally file-backed notification log.
type Store struct {
	log    *boundedLog[Notification]
	logger *slog.Logger
	now    func() time.Time
}

type Options struct {
	// Dir holds notifications.json. Empty keeps the log in memory.
	Dir    string
	Max    int
	Logger *slog.Logger
}

func NewStore(opts Options) (*Store, error) {
	limit := opts.Max
	if limit == 0 {
		limit = DefaultMax
	}
	file := ""
	if opts.Dir != "" {
		file = filepath.Join(opts.Dir, fileName)
	}

	l, err := newBoundedLog[Notification](file, limit)
	if err != nil {
		return nil, fmt.Errorf("open notification log: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{log: l, logger: logger, now: time.Now}, nil
}

// Record appends n, stamping ReceivedAt when unset.
func (s *Store) Record(n Notification) (Notification, error) {
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = s.now().UTC()
	}

	s.logger.Info("Render notification received",
		"id", n.ID,
		"status", n.Status,
		"url", n.URL,
		"timestamp", n.ReceivedAt.Format(time.RFC3339),
	)

	if err := s.log.Append(n); err != nil {
		return n, fmt.Errorf("record notification %s: %w", n.ID, err)
	}
	return n, nil
}

// List returns notifications oldest first.
func (s *Store) List() []Notification {
	return s.log.List()
}

// Latest returns the most recent notification for a render id.
func (s *Store) Latest(id string) (Notification, bool) {
	return s.log.FindLast(func(n Notification) bool { return n.ID == id })
}

func (s *Store) Len() int {
	return s.log.Len()
}
