package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const advisoryLockKey int64 = 8_423_771_091

var errLockNotHeld = errors.New("advisory lock was not held by this session")

// advisoryLock serializes migrators across processes. PostgreSQL advisory locks
// belong to a session, so the lock and the unlock run on one pinned connection.
type advisoryLock struct {
	key        int64
	lockSQL    string
	unlockSQL  string
	retryEvery time.Duration
}

func newAdvisoryLock() advisoryLock {
	return advisoryLock{
		key:        advisoryLockKey,
		lockSQL:    "SELECT pg_try_advisory_lock($1)",
		unlockSQL:  "SELECT pg_advisory_unlock($1)",
		retryEvery: time.Second,
	}
}

// heldLock owns the connection the lock was taken on until release.
type heldLock struct {
	conn      *sql.Conn
	key       int64
	unlockSQL string
}

// acquire waits until the lock is free or ctx is done.
func (l advisoryLock) acquire(ctx context.Context, db *sql.DB) (*heldLock, error) {
	if db == nil {
		return nil, errors.New("advisory lock requires database handle")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin advisory lock connection: %w", err)
	}

	for {
		var locked bool
		if err := conn.QueryRowContext(ctx, l.lockSQL, l.key).Scan(&locked); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if locked {
			return &heldLock{conn: conn, key: l.key, unlockSQL: l.unlockSQL}, nil
		}

		timer := time.NewTimer(l.retryEvery)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = conn.Close()
			return nil, fmt.Errorf("wait for advisory lock: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// release unlocks on the pinned session and hands the connection back to the pool.
func (h *heldLock) release(ctx context.Context) error {
	defer h.conn.Close()

	var released bool
	if err := h.conn.QueryRowContext(ctx, h.unlockSQL, h.key).Scan(&released); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	if !released {
		return errLockNotHeld
	}
	return nil
}
