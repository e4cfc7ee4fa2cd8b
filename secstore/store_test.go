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

package secstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/interfaces"
)

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Put("lastfm_api_key", []byte("hunter2")))
	got, err := store.Get("lastfm_api_key")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), got)
}

// records survive a process restart with the same master key.
func TestRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("token", []byte("secret-value")))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, err := reopened.Get("token")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret-value"), got)
}

func TestGetMissing(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "secrets.json"))
	require.NoError(t, err)

	_, err = store.Get("nope")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "secrets.json"))
	require.NoError(t, err)

	require.NoError(t, store.Put("a", []byte("1")))
	require.NoError(t, store.Delete("a"))
	_, err = store.Get("a")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.ErrorIs(t, store.Delete("a"), interfaces.ErrNotFound)
}

func TestListNames(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "secrets.json"))
	require.NoError(t, err)

	require.NoError(t, store.Put("b", []byte("2")))
	require.NoError(t, store.Put("a", []byte("1")))
	assert.Equal(t, []string{"a", "b"}, store.ListNames())
}

// tampering with the ciphertext is detected, never silently decrypted.
func TestTamperDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Put("key", []byte("value")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	file := fileFormat{}
	require.NoError(t, json.Unmarshal(raw, &file))
	rec := file.Records["key"]
	// flip a ciphertext byte
	data := []byte(rec.Data)
	data[0] ^= 'x'
	rec.Data = string(data)
	file.Records["key"] = rec
	tampered, err := json.Marshal(&file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, tampered, 0600))

	reopened, err := Open(path)
	require.NoError(t, err)
	_, err = reopened.Get("key")
	assert.ErrorIs(t, err, interfaces.ErrDecryptionFailed)
}

// every write draws a fresh nonce.
func TestNonceUniquePerWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Put("key", []byte("v1")))
	first := store.records["key"].Nonce
	require.NoError(t, store.Put("key", []byte("v2")))
	second := store.records["key"].Nonce
	assert.NotEqual(t, first, second)
}
