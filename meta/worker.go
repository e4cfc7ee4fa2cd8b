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
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"tryffel.net/go/audiocontrol/cache"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/task"
)

// NegativeTTL is how long a failed lookup stays cached before a retry is
// allowed.
const NegativeTTL = 48 * time.Hour

// Worker consumes SongChanged events and publishes SongInformationUpdate and
// MetadataChanged with augmented content. The cache is the single source of
// truth, providers are consulted only on miss. Failures stay silent to the
// api user, the song is simply left un-augmented.
type Worker struct {
	task.Task

	bus       *eventbus.Bus
	cache     *cache.Cache
	resolver  *MusicBrainz
	providers []ArtistInfoProvider
	timeout   time.Duration

	sub *eventbus.Subscription
}

// NewWorker creates the enrichment worker. Merge priority is fixed per slot,
// provider order only affects fetch scheduling.
func NewWorker(bus *eventbus.Bus, attributeCache *cache.Cache, resolver *MusicBrainz,
	providers []ArtistInfoProvider, timeout time.Duration) *Worker {

	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	w := &Worker{
		bus:       bus,
		cache:     attributeCache,
		resolver:  resolver,
		providers: providers,
		timeout:   timeout,
	}
	w.Task.Name = "metadata-enrichment"
	w.Task.SetLoop(w.loop)
	return w
}

// Start subscribes to the bus and starts the worker task.
func (w *Worker) Start() error {
	w.sub = w.bus.Subscribe("metadata-enrichment", eventbus.Filter{
		Types: []interfaces.EventType{interfaces.EventSongChanged},
	})
	return w.Task.Start()
}

// Stop stops the worker and drops the subscription.
func (w *Worker) Stop() error {
	err := w.Task.Stop()
	w.bus.Unsubscribe(w.sub)
	return err
}

func (w *Worker) loop() {
	for {
		select {
		case <-w.StopChan():
			return
		case event, ok := <-w.sub.Events():
			if !ok {
				return
			}
			if event.Song != nil {
				w.process(event)
			}
		}
	}
}

func (w *Worker) process(event interfaces.Event) {
	song := event.Song
	artist := Sanitize(song.Artist)
	if artist == "" {
		return
	}

	split := w.splitCached(artist)

	metas := make([]*models.ArtistMeta, 0, len(split.Names))
	resolved := 0
	for _, name := range split.Names {
		identity := w.resolveCached(name)
		if len(identity.MBIDs) > 0 {
			resolved++
		}
		meta := &models.ArtistMeta{Name: name, MBIDs: identity.MBIDs}
		if len(identity.MBIDs) > 0 {
			w.enrich(meta, identity.MBIDs[0], identity.Genres)
		}
		metas = append(metas, meta)
	}

	// record the aggregate outcome for multi-artist strings
	if len(split.Names) > 1 {
		switch {
		case resolved == len(split.Names):
			w.cacheSet(cache.Key(cache.PrefixArtistMBID, artist), identity{MBIDs: allMBIDs(metas)}, 0)
		case resolved > 0:
			w.cacheSet(cache.Key(cache.PrefixArtistMBIDPartial, artist), identity{MBIDs: allMBIDs(metas)}, 0)
		default:
			w.cacheSet(cache.Key(cache.PrefixArtistMBIDNotFound, artist), true, NegativeTTL)
		}
	}

	w.publish(event, song, metas)
}

// splitCached splits artist, serving and filling the split caches.
func (w *Worker) splitCached(artist string) SplitResult {
	result := SplitResult{}
	key := cache.Key(cache.PrefixArtistSplit, artist)
	if ok, err := w.cache.Get(key, &result); err == nil && ok {
		return result
	}

	result = Split(artist)
	w.cacheSet(key, result, 0)
	simple := SimpleSplit(artist)
	w.cacheSet(cache.Key(cache.PrefixArtistSimpleSplit, artist), simple, 0)
	return result
}

// identity is the cached value under artist::mbid keys.
type identity struct {
	MBIDs []string `json:"mbids"`
	// Genres are the identity service's tags, highest genre priority.
	Genres []string `json:"genres,omitempty"`
}

// resolveCached resolves one artist name through the cache. A miss triggers
// one rate-limited identity lookup; the negative result is cached with
// NegativeTTL so retries wait.
func (w *Worker) resolveCached(name string) identity {
	positiveKey := cache.Key(cache.PrefixArtistMBID, name)
	result := identity{}
	if ok, err := w.cache.Get(positiveKey, &result); err == nil && ok {
		return result
	}
	if w.cache.Contains(cache.Key(cache.PrefixArtistMBIDNotFound, name)) {
		return identity{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	mbids, genres, err := w.resolver.ResolveArtist(ctx, name)
	if err != nil {
		logrus.Warningf("Resolve artist '%s': %v", name, err)
		w.cacheSet(cache.Key(cache.PrefixArtistMBIDNotFound, name), true, NegativeTTL)
		return identity{}
	}
	if len(mbids) == 0 {
		logrus.Debugf("Artist '%s' not known to identity service", name)
		w.cacheSet(cache.Key(cache.PrefixArtistMBIDNotFound, name), true, NegativeTTL)
		return identity{}
	}

	result = identity{MBIDs: mbids, Genres: genres}
	w.cacheSet(positiveKey, result, 0)
	return result
}

// enrich fills meta from the providers, merging by priority. Each provider's
// raw response is cached permanently, a failing provider contributes nothing
// and its negative result is cached.
func (w *Worker) enrich(meta *models.ArtistMeta, mbid string, identityGenres []string) {
	mergedKey := cache.Key(cache.PrefixArtistMetadata, mbid)
	merged := models.ArtistMeta{}
	if ok, err := w.cache.Get(mergedKey, &merged); err == nil && ok {
		merged.Name = meta.Name
		merged.MBIDs = meta.MBIDs
		*meta = merged
		return
	}

	byProvider := map[string]*providerArtist{}
	var lock sync.Mutex
	group, ctx := errgroup.WithContext(context.Background())
	for _, provider := range w.providers {
		provider := provider
		group.Go(func() error {
			info := w.providerCached(ctx, provider, mbid)
			lock.Lock()
			byProvider[provider.Name()] = info
			lock.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	// each slot has its own provider priority: images from the curated
	// provider first, biography from the social-tag provider first, genres
	// identity service > social > image provider
	for _, name := range []string{ServiceFanartTV, ServiceTheAudioDB} {
		info := byProvider[name]
		if info == nil {
			continue
		}
		if len(meta.Thumbnails) == 0 {
			meta.Thumbnails = info.Thumbnails
		}
		if len(meta.Banners) == 0 {
			meta.Banners = info.Banners
		}
		if len(meta.FanArt) == 0 {
			meta.FanArt = info.FanArt
		}
	}
	for _, name := range []string{ServiceLastFM, ServiceTheAudioDB} {
		if info := byProvider[name]; info != nil && meta.Biography == "" {
			meta.Biography = info.Biography
		}
	}
	meta.Genres = identityGenres
	if len(meta.Genres) == 0 {
		for _, name := range []string{ServiceLastFM, ServiceTheAudioDB} {
			if info := byProvider[name]; info != nil && len(info.Genres) > 0 {
				meta.Genres = info.Genres
				break
			}
		}
	}

	if !meta.Empty() {
		w.cacheSet(mergedKey, meta, 0)
	}
}

// providerCached reads one provider through its cache prefix.
func (w *Worker) providerCached(ctx context.Context, provider ArtistInfoProvider, mbid string) *providerArtist {
	service := provider.Name()
	positiveKey := cache.Key(service+cache.Separator+"artist", mbid)
	negativeKey := cache.Key(service+cache.Separator+"artist_not_found", mbid)

	info := &providerArtist{}
	if ok, err := w.cache.Get(positiveKey, info); err == nil && ok {
		return info
	}
	if w.cache.Contains(negativeKey) {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	info, err := provider.ArtistInfo(callCtx, mbid)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			logrus.Warningf("Provider %s artist %s: %v", service, mbid, err)
		}
		w.cacheSet(negativeKey, true, NegativeTTL)
		return nil
	}
	if info.empty() {
		w.cacheSet(negativeKey, true, NegativeTTL)
		return nil
	}
	w.cacheSet(positiveKey, info, 0)
	return info
}

// publish emits the changed fields only, subscribers overlay them on their
// current song.
func (w *Worker) publish(event interfaces.Event, song *models.Song, metas []*models.ArtistMeta) {
	artistMetas := make([]models.ArtistMeta, 0, len(metas))
	any := false
	for _, meta := range metas {
		artistMetas = append(artistMetas, *meta)
		if !meta.Empty() {
			any = true
		}
	}
	if !any {
		return
	}

	update := &models.Song{
		Metadata: map[string]interface{}{"artists": artistMetas},
	}
	if song.Genre == "" {
		for _, meta := range metas {
			if len(meta.Genres) > 0 {
				update.Genre = meta.Genres[0]
				break
			}
		}
	}

	w.bus.Publish(interfaces.Event{
		Type:       interfaces.EventSongInformationUpdate,
		Source:     event.Source,
		SongUpdate: update,
	})
	w.bus.Publish(interfaces.Event{
		Type:     interfaces.EventMetadataChanged,
		Source:   event.Source,
		Metadata: map[string]interface{}{"artists": artistMetas},
	})
}

func (w *Worker) cacheSet(key string, value interface{}, ttl time.Duration) {
	if err := w.cache.Set(key, value, ttl); err != nil {
		logrus.Errorf("cache write %s: %v", key, err)
	}
}

func allMBIDs(metas []*models.ArtistMeta) []string {
	out := []string{}
	for _, meta := range metas {
		out = append(out, meta.MBIDs...)
	}
	return out
}
