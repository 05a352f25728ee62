// ABOUTME: Badger-backed cache of already-ingested extraction files.
// ABOUTME: Keys are MD5 content hashes, values the report the file produced.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

// Cache remembers which extraction files have already been ingested, so
// re-running over a directory skips unchanged files. Keyed by content
// hash, not path: a renamed copy of the same report is still a hit.
type Cache struct {
	db *badger.DB
}

// Open opens or creates the cache at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ingest cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Seen reports whether a file hash was ingested before, and the report
// it produced.
func (c *Cache) Seen(hash string) (uuid.UUID, bool, error) {
	var reportID uuid.UUID
	found := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(string(val))
		if err != nil {
			return err
		}
		reportID = id
		found = true
		return nil
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	return reportID, found, nil
}

// Put records that a file hash was ingested into the given report.
func (c *Cache) Put(hash string, reportID uuid.UUID) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hash), []byte(reportID.String()))
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// HashFile returns the MD5 content hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
