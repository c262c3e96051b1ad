package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyBlacklisted is returned by Blacklist.Add for a known jti.
var ErrAlreadyBlacklisted = errors.New("token already blacklisted")

// Blacklist records refresh tokens that were revoked before they expired.
type Blacklist interface {
	Add(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
	// FlushExpired drops entries whose token has expired anyway.
	FlushExpired(ctx context.Context) (int, error)
}

type blacklistEntry struct {
	UserID    int64
	ExpiresAt time.Time
}

// MemoryBlacklist keeps revoked tokens in memory. It is used by tests and by
// single-instance development servers.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]blacklistEntry
	now     func() time.Time
	done    chan struct{}
}

// NewMemoryBlacklist creates a store. When cleanupInterval is positive a
// goroutine flushes expired entries on that interval until Close.
func NewMemoryBlacklist(cleanupInterval time.Duration) *MemoryBlacklist {
	b := &MemoryBlacklist{
		entries: make(map[string]blacklistEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go b.cleanupLoop(cleanupInterval)
	}
	return b
}

func (b *MemoryBlacklist) Add(_ context.Context, jti string, userID int64, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[jti]; ok {
		return ErrAlreadyBlacklisted
	}
	b.entries[jti] = blacklistEntry{UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.entries[jti]
	return ok, nil
}

func (b *MemoryBlacklist) FlushExpired(context.Context) (int, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for jti, entry := range b.entries {
		if now.After(entry.ExpiresAt) {
			delete(b.entries, jti)
			n++
		}
	}
	return n, nil
}

// Count returns the number of blacklisted tokens.
func (b *MemoryBlacklist) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (b *MemoryBlacklist) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *MemoryBlacklist) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.FlushExpired(context.Background())
		}
	}
}
