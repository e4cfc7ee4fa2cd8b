/*
 * AudioControl is a control daemon for audio players.
 * Copyright (C) 2025 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package cache implements the process-wide attribute cache: an in-memory map
// fronting a persistent sqlite file. Values are JSON. Entries may expire,
// expired entries are invisible to readers and lazily deleted. Destroying the
// database file costs lookups, not correctness.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
)

type entry struct {
	value   json.RawMessage
	created time.Time
	// zero expiry means the entry never expires
	expires time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// EntryInfo describes a cache entry for listings.
type EntryInfo struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value,omitempty"`
	Created time.Time       `json:"created"`
	Expires *time.Time      `json:"expires,omitempty"`
}

// CleanFilter selects entries for Clean. Exactly one field should be set.
type CleanFilter struct {
	Prefix        string `json:"prefix,omitempty"`
	OlderThanDays int    `json:"older_than_days,omitempty"`
	All           bool   `json:"all,omitempty"`
}

// Cache is the two-tier attribute store. All mutation goes through its API.
// The memory mutex guards only the map, persistent writes run under the
// database's own serialisation.
type Cache struct {
	lock    sync.RWMutex
	memory  map[string]*entry
	// missing records keys known absent from both tiers, for fast Contains
	missing map[string]bool

	db *sql.DB
}

// Open opens or creates the cache database at path, creating parent
// directories when needed.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping cache db: %w", err)
	}
	// sqlite allows a single writer, constrain the pool accordingly
	db.SetMaxOpenConns(1)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS attributes (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created INTEGER NOT NULL,
		expires INTEGER
	);`
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create attributes table: %w", err)
	}

	c := &Cache{
		memory:  map[string]*entry{},
		missing: map[string]bool{},
		db:      db,
	}
	logrus.Debugf("Attribute cache opened: %s", path)
	return c, nil
}

// Close flushes nothing (writes are synchronous) and closes the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get reads key into dest. Returns false when the key does not exist or has
// expired.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	raw, ok, err := c.GetRaw(key)
	if err != nil || !ok {
		return ok, err
	}
	if dest == nil {
		return true, nil
	}
	if err = json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("unmarshal cache entry %s: %w", key, err)
	}
	return true, nil
}

// GetRaw reads the raw JSON value for key.
func (c *Cache) GetRaw(key string) (json.RawMessage, bool, error) {
	if c == nil {
		return nil, false, interfaces.ErrNotInitialised
	}
	now := time.Now()

	c.lock.RLock()
	e, inMemory := c.memory[key]
	absent := c.missing[key]
	c.lock.RUnlock()

	if inMemory {
		if e.expired(now) {
			c.evict(key)
			metrics.CacheLookups.WithLabelValues("expired").Inc()
			return nil, false, nil
		}
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return e.value, true, nil
	}
	if absent {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	e, err := c.readPersistent(key)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		c.lock.Lock()
		c.missing[key] = true
		c.lock.Unlock()
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if e.expired(now) {
		c.evict(key)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false, nil
	}

	c.lock.Lock()
	c.memory[key] = e
	delete(c.missing, key)
	c.lock.Unlock()
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.value, true, nil
}

// Set stores value under key. ttl 0 means the entry never expires. Setting a
// positive value removes the not-found twin of the key; setting a not-found
// marker while its positive twin exists is a no-op.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return interfaces.ErrNotInitialised
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	if isNegative(key) {
		if positive, ok := positiveTwin(key); ok {
			if _, exists, _ := c.GetRaw(positive); exists {
				logrus.Debugf("Cache: skip negative %s, positive entry exists", key)
				return nil
			}
		}
	} else if negative, ok := negativeTwin(key); ok {
		if err := c.Delete(negative); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			return err
		}
	}

	now := time.Now()
	e := &entry{value: raw, created: now}
	var expires *int64
	if ttl > 0 {
		e.expires = now.Add(ttl)
		unix := e.expires.Unix()
		expires = &unix
	}

	_, err = c.db.Exec(
		`INSERT INTO attributes (key, value, created, expires) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, created=excluded.created, expires=excluded.expires`,
		key, string(raw), now.Unix(), expires)
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}

	c.lock.Lock()
	c.memory[key] = e
	delete(c.missing, key)
	c.lock.Unlock()
	return nil
}

// Delete removes key from both tiers. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	if c == nil {
		return interfaces.ErrNotInitialised
	}
	c.evict(key)
	return nil
}

// Contains is a fast existence check. When the memory tier already knows the
// key is absent, no database access happens.
func (c *Cache) Contains(key string) bool {
	if c == nil {
		return false
	}
	c.lock.RLock()
	e, inMemory := c.memory[key]
	absent := c.missing[key]
	c.lock.RUnlock()

	if inMemory {
		return !e.expired(time.Now())
	}
	if absent {
		return false
	}
	_, ok, err := c.GetRaw(key)
	return err == nil && ok
}

// List returns entries under prefix. With detailed false only keys are
// filled in.
func (c *Cache) List(prefix string, detailed bool) ([]EntryInfo, error) {
	if c == nil {
		return nil, interfaces.ErrNotInitialised
	}
	pattern := prefix + "%"
	rows, err := c.db.Query(
		`SELECT key, value, created, expires FROM attributes WHERE key LIKE ? ORDER BY key`, pattern)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	out := []EntryInfo{}
	for rows.Next() {
		var key, value string
		var created int64
		var expires sql.NullInt64
		if err := rows.Scan(&key, &value, &created, &expires); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		info := EntryInfo{Key: key, Created: time.Unix(created, 0)}
		if expires.Valid {
			t := time.Unix(expires.Int64, 0)
			if now.After(t) {
				continue
			}
			info.Expires = &t
		}
		if detailed {
			info.Value = json.RawMessage(value)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Clean removes entries matching filter from both tiers. Returns number of
// removed persistent entries.
func (c *Cache) Clean(filter CleanFilter) (int, error) {
	if c == nil {
		return 0, interfaces.ErrNotInitialised
	}

	var result sql.Result
	var err error
	switch {
	case filter.All:
		result, err = c.db.Exec(`DELETE FROM attributes`)
	case filter.OlderThanDays > 0:
		cutoff := time.Now().AddDate(0, 0, -filter.OlderThanDays).Unix()
		result, err = c.db.Exec(`DELETE FROM attributes WHERE created < ?`, cutoff)
	case filter.Prefix != "":
		result, err = c.db.Exec(`DELETE FROM attributes WHERE key LIKE ?`, filter.Prefix+"%")
	default:
		return 0, fmt.Errorf("%w: empty clean filter", interfaces.ErrInvalidArgument)
	}
	if err != nil {
		return 0, fmt.Errorf("clean cache: %w", err)
	}

	c.lock.Lock()
	if filter.All {
		c.memory = map[string]*entry{}
	} else {
		cutoff := time.Now().AddDate(0, 0, -filter.OlderThanDays)
		for key, e := range c.memory {
			if (filter.Prefix != "" && strings.HasPrefix(key, filter.Prefix)) ||
				(filter.OlderThanDays > 0 && e.created.Before(cutoff)) {
				delete(c.memory, key)
			}
		}
	}
	c.missing = map[string]bool{}
	c.lock.Unlock()

	n, _ := result.RowsAffected()
	logrus.Infof("Cache clean removed %d entries", n)
	return int(n), nil
}

func (c *Cache) evict(key string) {
	c.lock.Lock()
	delete(c.memory, key)
	c.missing[key] = true
	c.lock.Unlock()
	if _, err := c.db.Exec(`DELETE FROM attributes WHERE key = ?`, key); err != nil {
		logrus.Errorf("delete cache entry %s: %v", key, err)
	}
}

func (c *Cache) readPersistent(key string) (*entry, error) {
	var value string
	var created int64
	var expires sql.NullInt64
	err := c.db.QueryRow(
		`SELECT value, created, expires FROM attributes WHERE key = ?`, key).
		Scan(&value, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	e := &entry{value: json.RawMessage(value), created: time.Unix(created, 0)}
	if expires.Valid {
		e.expires = time.Unix(expires.Int64, 0)
	}
	return e, nil
}
