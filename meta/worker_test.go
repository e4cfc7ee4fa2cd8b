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

package meta

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/cache"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/ratelimit"
)

// fakeIdentity serves a MusicBrainz-shaped search endpoint and counts calls.
type fakeIdentity struct {
	server *httptest.Server
	calls  int64
	known  map[string]string // artist name -> mbid
}

func newFakeIdentity(t *testing.T, known map[string]string) *fakeIdentity {
	f := &fakeIdentity{known: known}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.calls, 1)
		query := r.URL.Query().Get("query")
		for name, mbid := range f.known {
			if query == fmt.Sprintf(`artist:"%s"`, name) {
				fmt.Fprintf(w, `{"artists":[{"id":"%s","name":"%s","score":100}]}`, mbid, name)
				return
			}
		}
		fmt.Fprint(w, `{"artists":[]}`)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func testWorker(t *testing.T, identity *fakeIdentity) (*Worker, *cache.Cache, *eventbus.Bus) {
	t.Helper()
	attributeCache, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { attributeCache.Close() })

	bus := eventbus.New()
	t.Cleanup(bus.Close)

	limiter := ratelimit.NewRegistry()
	limiter.Register(ServiceMusicBrainz, time.Millisecond)
	resolver := NewMusicBrainz(limiter, 0)
	resolver.baseURL = identity.server.URL

	worker := NewWorker(bus, attributeCache, resolver, nil, 0)
	return worker, attributeCache, bus
}

func songEvent(artist string) interfaces.Event {
	return interfaces.Event{
		Type:   interfaces.EventSongChanged,
		Song:   &models.Song{Title: "T", Artist: artist},
		Source: interfaces.Source{PlayerName: "gp"},
	}
}

func TestResolveCachesPositive(t *testing.T) {
	identity := newFakeIdentity(t, map[string]string{"The Beatles": "mbid-beatles"})
	worker, attributeCache, _ := testWorker(t, identity)

	worker.process(songEvent("The Beatles"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&identity.calls))

	result := struct {
		MBIDs []string `json:"mbids"`
	}{}
	ok, err := attributeCache.Get(cache.Key(cache.PrefixArtistMBID, "The Beatles"), &result)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"mbid-beatles"}, result.MBIDs)

	// second song by the same artist: served from cache, no provider call
	worker.process(songEvent("The Beatles"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&identity.calls))
}

// a failed resolution is cached negatively and not retried within the ttl.
func TestResolveCachesNegative(t *testing.T) {
	identity := newFakeIdentity(t, nil)
	worker, attributeCache, _ := testWorker(t, identity)

	worker.process(songEvent("Nonexistent_XYZ"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&identity.calls))

	negativeKey := cache.Key(cache.PrefixArtistMBIDNotFound, "Nonexistent_XYZ")
	assert.True(t, attributeCache.Contains(negativeKey))

	entries, err := attributeCache.List(negativeKey, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Expires, "negative entries carry an expiry")
	ttl := time.Until(*entries[0].Expires)
	assert.Greater(t, ttl, 47*time.Hour)
	assert.LessOrEqual(t, ttl, 48*time.Hour)

	// within the ttl no further provider calls happen
	worker.process(songEvent("Nonexistent_XYZ"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&identity.calls))
}

func TestMultiArtistSplitResolution(t *testing.T) {
	identity := newFakeIdentity(t, map[string]string{"A": "mbid-a"})
	worker, attributeCache, _ := testWorker(t, identity)

	worker.process(songEvent("A feat. B"))
	// one lookup per individual name
	assert.EqualValues(t, 2, atomic.LoadInt64(&identity.calls))

	assert.True(t, attributeCache.Contains(cache.Key(cache.PrefixArtistMBID, "A")))
	assert.True(t, attributeCache.Contains(cache.Key(cache.PrefixArtistMBIDNotFound, "B")))
	// some names resolved: the original string is a partial result
	assert.True(t, attributeCache.Contains(cache.Key(cache.PrefixArtistMBIDPartial, "A feat. B")))
	assert.True(t, attributeCache.Contains(cache.Key(cache.PrefixArtistSplit, "A feat. B")))
}

func TestEnrichmentPublishesUpdate(t *testing.T) {
	identity := newFakeIdentity(t, map[string]string{"The Beatles": "mbid-beatles"})
	worker, _, bus := testWorker(t, identity)

	sub := bus.Subscribe("test", eventbus.Filter{
		Types: []interfaces.EventType{interfaces.EventSongInformationUpdate},
	})

	worker.process(songEvent("The Beatles"))

	select {
	case event := <-sub.Events():
		require.NotNil(t, event.SongUpdate)
		assert.NotNil(t, event.SongUpdate.Metadata["artists"])
	case <-time.After(time.Second):
		t.Fatal("no song information update published")
	}
}
