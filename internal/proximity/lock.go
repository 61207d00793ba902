package proximity

import (
	"context"
	"log"
	"sync"

	"github.com/ConectaAbrigos/abrigos-backend/internal/db"
	"gorm.io/gorm"
)

// RecomputeLockKey guards the whole recompute, so overlapping runs never
// interleave their writes.
const RecomputeLockKey = "proximity-recompute"

// Locker hands out non-blocking named locks.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// AdvisoryLocker uses postgres advisory locks, so the guard holds across
// every process sharing the database.
type AdvisoryLocker struct {
	DB *gorm.DB
}

func (l AdvisoryLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	lock, ok, err := db.TryAdvisoryLock(ctx, l.DB, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Printf("[proximity] release %s: %v", key, err)
		}
	}, true, nil
}

// LocalLocker is an in-process Locker for single-instance use and tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}
