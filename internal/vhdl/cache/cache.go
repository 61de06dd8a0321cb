// Package cache implements the content-addressed build cache: a
// single-table modernc.org/sqlite database keyed by the SHA-256 of a
// source file's bytes, storing a rezi-marshaled blob of whatever the
// pipeline stage produced. One struct wrapping a *sql.DB; init() creates
// the table if missing.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/dekarrin/rezi"
	_ "modernc.org/sqlite"
)

// Cache is an open handle to a build cache database. The zero value is not
// useful; create one with Open.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path and
// ensures its table exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c := &Cache{db: db}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	const stmt = `CREATE TABLE IF NOT EXISTS parsed_designs (
		hash TEXT NOT NULL PRIMARY KEY,
		created_at INTEGER NOT NULL,
		blob BLOB NOT NULL
	);`
	_, err := c.db.Exec(stmt)
	if err != nil {
		return fmt.Errorf("init cache schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// HashSource returns the cache key for a source file's raw bytes: the hex
// SHA-256 digest.
func HashSource(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// Get decodes the cached blob for hash into target (a pointer, as
// rezi.Dec requires), reporting ok=false and no error if the key is
// not present. target must be the same type a prior Put call encoded, since
// rezi decodes according to the destination's type.
func (c *Cache) Get(hash string, target interface{}) (ok bool, err error) {
	var blob []byte
	row := c.db.QueryRow(`SELECT blob FROM parsed_designs WHERE hash = ?;`, hash)
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query cache: %w", err)
	}

	n, err := rezi.Dec(blob, target)
	if err != nil {
		return false, fmt.Errorf("decode cached blob: %w", err)
	}
	if n != len(blob) {
		return false, fmt.Errorf("decode cached blob: consumed %d/%d bytes", n, len(blob))
	}
	return true, nil
}

// Put encodes v with rezi and stores it under hash, replacing any prior
// entry for the same key -- a cache hit never needs a timestamp comparison
// since the key already identifies exact byte-for-byte source content.
func (c *Cache) Put(hash string, createdAtUnix int64, v interface{}) error {
	blob, err := rezi.Enc(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO parsed_designs (hash, created_at, blob) VALUES (?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET created_at = excluded.created_at, blob = excluded.blob;`,
		hash, createdAtUnix, blob,
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}
