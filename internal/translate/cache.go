package translate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

// Cache stores translations in SQLite. It is safe for concurrent use.
type Cache struct {
	db  *sql.DB
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path. A ttl of
// zero keeps entries forever. ":memory:" gives a private in-memory cache.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	c := &Cache{db: db, ttl: ttl, now: time.Now}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return c, nil
}

func (c *Cache) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		provider TEXT NOT NULL,
		target TEXT NOT NULL,
		query TEXT NOT NULL,
		translation TEXT NOT NULL,
		phonetic TEXT,
		explains TEXT,
		cached_at DATETIME NOT NULL,
		PRIMARY KEY (provider, target, query)
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

func cacheKey(query string) string {
	return strings.ToLower(NormalizeQuery(query))
}

// Get returns the cached result, if any and not expired.
func (c *Cache) Get(ctx context.Context, provider, target, query string) (Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	row := c.db.QueryRowContext(ctx, `
		SELECT translation, phonetic, explains, cached_at
		FROM translations WHERE provider = ? AND target = ? AND query = ?`,
		provider, target, cacheKey(query))

	var (
		translation string
		phonetic    sql.NullString
		explains    sql.NullString
		cachedAt    time.Time
	)
	if err := row.Scan(&translation, &phonetic, &explains, &cachedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("read cache: %w", err)
	}
	if c.ttl > 0 && c.now().Sub(cachedAt) > c.ttl {
		return Result{}, false, nil
	}

	result := Result{
		Query:       NormalizeQuery(query),
		Translation: translation,
		Phonetic:    phonetic.String,
		Provider:    provider,
		Target:      target,
	}
	if explains.Valid && explains.String != "" {
		if err := json.Unmarshal([]byte(explains.String), &result.Explains); err != nil {
			return Result{}, false, fmt.Errorf("decode cached explains: %w", err)
		}
	}
	return result, true, nil
}

// Put stores r, replacing an older entry for the same lookup.
func (c *Cache) Put(ctx context.Context, r Result) error {
	explains, err := json.Marshal(r.Explains)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO translations (provider, target, query, translation, phonetic, explains, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Provider, r.Target, cacheKey(r.Query), r.Translation, r.Phonetic, string(explains), c.now().UTC())
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Cached serves lookups from a Cache before asking the wrapped client. Cache
// failures are logged and never fail a lookup.
type Cached struct {
	client Client
	cache  *Cache
	logger *log.Logger
}

// NewCached wraps client with cache.
func NewCached(client Client, cache *Cache, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Cached{client: client, cache: cache, logger: logger}
}

func (c *Cached) Name() string   { return c.client.Name() }
func (c *Cached) Target() string { return c.client.Target() }

func (c *Cached) Translate(ctx context.Context, text string) (Result, error) {
	if NormalizeQuery(text) == "" {
		return Result{}, ErrEmptyQuery
	}
	result, ok, err := c.cache.Get(ctx, c.client.Name(), c.client.Target(), text)
	if err != nil {
		c.logger.Warn("cache read failed", "err", err)
	}
	if ok {
		c.logger.Debug("cache hit", "query", result.Query)
		return result, nil
	}

	result, err = c.client.Translate(ctx, text)
	if err != nil {
		return Result{}, err
	}
	if err := c.cache.Put(ctx, result); err != nil {
		c.logger.Warn("cache write failed", "err", err)
	}
	return result, nil
}
