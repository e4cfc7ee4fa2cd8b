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

package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTypedAccessors(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.SetString("name", "listening room"))
	name, err := store.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "listening room", name)

	require.NoError(t, store.SetInt("volume_step", 5))
	step, err := store.GetInt("volume_step")
	require.NoError(t, err)
	assert.Equal(t, int64(5), step)

	require.NoError(t, store.SetBool("autoplay", true))
	autoplay, err := store.GetBool("autoplay")
	require.NoError(t, err)
	assert.True(t, autoplay)

	require.NoError(t, store.SetJSON("widget", map[string]int{"x": 1}))
	widget := map[string]int{}
	require.NoError(t, store.GetJSON("widget", &widget))
	assert.Equal(t, 1, widget["x"])
}

func TestTypedErrors(t *testing.T) {
	store := testStore(t)

	_, err := store.GetString("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetString("text", "not a number"))
	_, err = store.GetInt("text")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = store.GetBool("text")
	assert.ErrorIs(t, err, ErrWrongType)

	var closed *Store
	_, err = closed.GetString("x")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestOverwriteAndDelete(t *testing.T) {
	store := testStore(t)

	require.NoError(t, store.SetInt("n", 1))
	require.NoError(t, store.SetInt("n", 2))
	n, err := store.GetInt("n")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.Delete("n"))
	_, err = store.GetInt("n")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete("n"), "deleting a missing key is not an error")
}
