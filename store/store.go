// Package store records what was drafted and published, keyed by source
// URL so the pipeline never covers the same story twice.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrDuplicate is returned when a content log with the same source URL
// already exists.
var ErrDuplicate = errors.New("store: duplicate source url")

// ContentLog is one drafted (and possibly published) story.
type ContentLog struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"index"`
	SourceURL  string    `gorm:"uniqueIndex"`
	Headline   string
	Politician string
	// DraftedThread is the JSON-encoded list of post texts.
	DraftedThread string
	// MediaPaths is a comma-separated list of local media files.
	MediaPaths string
}

// Store is the content log port. Both the postgres and in-memory adapters
// satisfy it.
type Store interface {
	Save(ctx context.Context, log ContentLog) error
	SeenSource(ctx context.Context, sourceURL string) (bool, error)
	Recent(ctx context.Context, n int) ([]ContentLog, error)
}

// Memory is the in-process adapter used when no DATABASE_URL is configured,
// and in tests.
type Memory struct {
	mu     sync.Mutex
	nextID uint
	logs   []ContentLog
	byURL  map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{byURL: make(map[string]struct{})}
}

func (m *Memory) Save(_ context.Context, log ContentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byURL[log.SourceURL]; ok && log.SourceURL != "" {
		return ErrDuplicate
	}
	m.nextID++
	log.ID = m.nextID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	m.logs = append(m.logs, log)
	if log.SourceURL != "" {
		m.byURL[log.SourceURL] = struct{}{}
	}
	return nil
}

func (m *Memory) SeenSource(_ context.Context, sourceURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byURL[sourceURL]
	return ok, nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]ContentLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ContentLog, len(m.logs))
	copy(out, m.logs)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
