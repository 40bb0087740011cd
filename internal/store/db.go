package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

type DB struct {
	Pool *sql.DB

	// lock guards the store against a second process. Fingerprint
	// check-then-insert races across processes otherwise.
	lock *flock.Flock
}

func Open(path string) (*DB, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("store %s is locked by another process", path)
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	pool.SetMaxOpenConns(1) // sqlite wants a single writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		_ = fl.Unlock()
		return nil, err
	}

	return &DB{Pool: pool, lock: fl}, nil
}

func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	if d.lock != nil {
		defer func() { _ = d.lock.Unlock() }()
	}
	if d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}
