package db

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// AdvisoryLock is a session-level postgres advisory lock. It pins one pooled
// connection because lock and unlock must run on the same session.
type AdvisoryLock struct {
	conn *sql.Conn
	key  string
}

// TryAdvisoryLock takes pg_try_advisory_lock(hashtext(key)) without blocking.
// ok is false when another session holds the lock.
func TryAdvisoryLock(ctx context.Context, d *gorm.DB, key string) (lock *AdvisoryLock, ok bool, err error) {
	sqlDB, err := d.DB()
	if err != nil {
		return nil, false, fmt.Errorf("get sql.DB: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("pin connection: %w", err)
	}

	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("advisory lock %q: %w", key, err)
	}
	if !ok {
		conn.Close()
		return nil, false, nil
	}
	return &AdvisoryLock{conn: conn, key: key}, true, nil
}

// Release unlocks and returns the pinned connection to the pool.
func (l *AdvisoryLock) Release(ctx context.Context) error {
	defer l.conn.Close()

	var released bool
	if err := l.conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, l.key).Scan(&released); err != nil {
		return fmt.Errorf("advisory unlock %q: %w", l.key, err)
	}
	if !released {
		return fmt.Errorf("advisory lock %q was not held", l.key)
	}
	return nil
}
