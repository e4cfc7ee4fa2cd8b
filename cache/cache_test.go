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

package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "attributes", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := testCache(t)
	key := Key(PrefixArtistMBID, "The Beatles")

	require.NoError(t, c.Set(key, []string{"b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d"}, 0))

	got := []string{}
	ok, err := c.Get(key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d"}, got)

	assert.True(t, c.Contains(key))
	assert.False(t, c.Contains(Key(PrefixArtistMBID, "Unknown")))

	require.NoError(t, c.Delete(key))
	ok, err = c.Get(key, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	require.NoError(t, err)
	key := Key(PrefixArtistMetadata, "mbid-1")
	require.NoError(t, c.Set(key, map[string]string{"name": "x"}, 0))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()
	got := map[string]string{}
	ok, err := c.Get(key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", got["name"])
}

func TestCacheExpiry(t *testing.T) {
	c := testCache(t)
	key := Key(PrefixArtistMBIDNotFound, "Nobody")

	require.NoError(t, c.Set(key, true, 30*time.Millisecond))
	assert.True(t, c.Contains(key))

	time.Sleep(60 * time.Millisecond)
	ok, err := c.Get(key, nil)
	require.NoError(t, err)
	assert.False(t, ok, "expired entries are invisible")
	assert.False(t, c.Contains(key))
}

// a positive entry and its not-found twin are mutually exclusive.
func TestCacheNegativePositiveExclusion(t *testing.T) {
	c := testCache(t)
	positive := Key(PrefixArtistMBID, "The Beatles")
	negative := Key(PrefixArtistMBIDNotFound, "The Beatles")

	require.NoError(t, c.Set(negative, true, time.Hour))
	assert.True(t, c.Contains(negative))

	// setting the positive removes the negative
	require.NoError(t, c.Set(positive, []string{"mbid"}, 0))
	assert.False(t, c.Contains(negative))
	assert.True(t, c.Contains(positive))

	// setting a negative while the positive exists is a no-op
	require.NoError(t, c.Set(negative, true, time.Hour))
	assert.False(t, c.Contains(negative))
	assert.True(t, c.Contains(positive))
}

func TestCacheList(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Set(Key(PrefixArtistMBID, "A"), 1, 0))
	require.NoError(t, c.Set(Key(PrefixArtistMBID, "B"), 2, 0))
	require.NoError(t, c.Set(Key(PrefixAlbumMBID, "C"), 3, 0))

	entries, err := c.List(PrefixArtistMBID+Separator, false)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Empty(t, entries[0].Value, "plain listing has no values")

	detailed, err := c.List(PrefixAlbumMBID+Separator, true)
	require.NoError(t, err)
	require.Len(t, detailed, 1)
	assert.Equal(t, "3", string(detailed[0].Value))
}

func TestCacheClean(t *testing.T) {
	c := testCache(t)
	require.NoError(t, c.Set(Key(PrefixArtistMBID, "A"), 1, 0))
	require.NoError(t, c.Set(Key(PrefixAlbumMBID, "B"), 2, 0))

	removed, err := c.Clean(CleanFilter{Prefix: PrefixArtistMBID})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, c.Contains(Key(PrefixArtistMBID, "A")))
	assert.True(t, c.Contains(Key(PrefixAlbumMBID, "B")))

	removed, err = c.Clean(CleanFilter{All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, c.Contains(Key(PrefixAlbumMBID, "B")))

	_, err = c.Clean(CleanFilter{})
	assert.Error(t, err, "empty filter must be rejected")
}
