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

// Package settings stores typed user preferences in their own sqlite file,
// separate from the attribute cache. Failures are typed so user data is never
// confused with cache data.
package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Typed setting errors. Distinct from cache errors on purpose.
var (
	// ErrNotFound occurs when no setting exists with the key.
	ErrNotFound = errors.New("setting not found")
	// ErrWrongType occurs when a stored value cannot be read as the
	// requested type.
	ErrWrongType = errors.New("setting has wrong type")
	// ErrNotOpen occurs when the store is used before Open.
	ErrNotOpen = errors.New("settings store not open")
)

// Store is a typed key-value store for user preferences.
type Store struct {
	db *sql.DB
}

// Open opens or creates the settings database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping settings db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	logrus.Debugf("Settings store opened: %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) get(key string) (string, error) {
	if s == nil || s.db == nil {
		return "", ErrNotOpen
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(key, value string) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// GetString reads a string setting.
func (s *Store) GetString(key string) (string, error) {
	return s.get(key)
}

// SetString writes a string setting.
func (s *Store) SetString(key, value string) error {
	return s.set(key, value)
}

// GetInt reads a 64-bit integer setting.
func (s *Store) GetInt(key string) (int64, error) {
	raw, err := s.get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an int", ErrWrongType, key)
	}
	return n, nil
}

// SetInt writes a 64-bit integer setting.
func (s *Store) SetInt(key string, value int64) error {
	return s.set(key, strconv.FormatInt(value, 10))
}

// GetBool reads a boolean setting.
func (s *Store) GetBool(key string) (bool, error) {
	raw, err := s.get(key)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s is not a bool", ErrWrongType, key)
	}
	return b, nil
}

// SetBool writes a boolean setting.
func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, strconv.FormatBool(value))
}

// GetJSON reads a setting into dest.
func (s *Store) GetJSON(key string, dest interface{}) error {
	raw, err := s.get(key)
	if err != nil {
		return err
	}
	if err = json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("%w: %s is not valid json: %v", ErrWrongType, key, err)
	}
	return nil
}

// SetJSON writes value as a JSON setting.
func (s *Store) SetJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal setting %s: %w", key, err)
	}
	return s.set(key, string(raw))
}

// Delete removes a setting. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return ErrNotOpen
	}
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
