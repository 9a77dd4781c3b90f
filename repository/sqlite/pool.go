package sqlite

import (
	"fmt"
	"log"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Every connection gets these before the schema is applied. WAL lets
// feed reads proceed while a like toggle holds the write lock;
// busy_timeout makes racing toggles wait for the lock instead of failing.
var pragmas = []string{
	"PRAGMA busy_timeout=5000",
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=OFF",
	"PRAGMA cache_size=-8192",
	"PRAGMA temp_store=MEMORY",
}

func openPool(path string, poolSize int) (*sqlitex.Pool, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}
	if path == ":memory:" {
		// every in-memory connection is its own database
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", path, err)
	}

	log.Printf("sqlite pool opened: path=%s pool_size=%d", path, poolSize)

	return pool, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite: schema: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tweets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS tweets_by_time ON tweets (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS tweets_by_user_time ON tweets (user_id, created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS likes (
	user_id  TEXT NOT NULL,
	tweet_id TEXT NOT NULL,
	PRIMARY KEY (user_id, tweet_id)
);

CREATE INDEX IF NOT EXISTS likes_by_tweet ON likes (tweet_id);

CREATE TABLE IF NOT EXISTS follows (
	follower_id TEXT NOT NULL,
	followee_id TEXT NOT NULL,
	PRIMARY KEY (follower_id, followee_id)
);

CREATE INDEX IF NOT EXISTS follows_by_followee ON follows (followee_id);
`
