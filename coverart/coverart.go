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

// Package coverart aggregates cover lookups over registered providers and
// grades every image so clients can pick results[0].images[0] as best
// available while keeping per-provider attribution.
package coverart

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
)

// Provider weights for grading.
const (
	WeightCurated   = 3
	WeightRichMedia = 2
	WeightStreaming = 1
	WeightLocal     = 0
)

// ProviderInfo describes one provider in a response.
type ProviderInfo struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// ImageRef is one graded image. Zero width/height or size means unknown, an
// unknown factor contributes nothing to the grade.
type ImageRef struct {
	URL       string `json:"url"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
	Grade     int    `json:"grade"`
}

// Result groups a provider's images, sorted by grade descending.
type Result struct {
	Provider ProviderInfo `json:"provider"`
	Images   []ImageRef   `json:"images"`
}

// Provider serves cover lookups. Implementations advertise the lookup kinds
// they support through the optional interfaces below.
type Provider interface {
	Info() ProviderInfo
	// Active tells whether the provider is usable right now.
	Active() bool
}

// ArtistLookup finds images for an artist name.
type ArtistLookup interface {
	LookupByArtist(ctx context.Context, name string) ([]ImageRef, error)
}

// SongLookup finds images for a song.
type SongLookup interface {
	LookupBySong(ctx context.Context, title, artist string) ([]ImageRef, error)
}

// AlbumLookup finds images for an album. Year 0 means unknown.
type AlbumLookup interface {
	LookupByAlbum(ctx context.Context, title, artist string, year int) ([]ImageRef, error)
}

// URLLookup resolves or extracts an image from a source url, e.g. embedded
// art in a local file.
type URLLookup interface {
	LookupByURL(ctx context.Context, url string) ([]ImageRef, error)
}

// Grade scores an image: provider weight, byte-size bucket and resolution
// bucket summed.
func Grade(weight, sizeBytes, width, height int) int {
	grade := weight

	if sizeBytes > 0 {
		switch {
		case sizeBytes < 10*1024:
			grade--
		case sizeBytes > 100*1024:
			grade++
		}
	}

	if width > 0 && height > 0 {
		switch {
		case width < 100 || height < 100:
			grade -= 2
		case width < 300 || height < 300:
			grade--
		case width < 600 || height < 600:
			// neutral
		case width < 1000 || height < 1000:
			grade++
		default:
			grade += 2
		}
	}
	return grade
}

// Aggregator fans a lookup out to every registered provider. Responses list
// providers by their best image grade, best first; providers with equal best
// grades keep registration order.
type Aggregator struct {
	providers []Provider
}

// NewAggregator creates an aggregator over providers.
func NewAggregator(providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers}
}

// Register adds a provider at startup.
func (a *Aggregator) Register(provider Provider) {
	a.providers = append(a.providers, provider)
}

// ByArtist looks up artist images on every provider supporting it.
func (a *Aggregator) ByArtist(ctx context.Context, name string) []Result {
	return a.collect(func(p Provider) ([]ImageRef, bool) {
		lookup, ok := p.(ArtistLookup)
		if !ok {
			return nil, false
		}
		images, err := lookup.LookupByArtist(ctx, name)
		if err != nil {
			logrus.Warningf("Cover lookup by artist on %s: %v", p.Info().Name, err)
			return nil, true
		}
		return images, true
	})
}

// BySong looks up song images on every provider supporting it.
func (a *Aggregator) BySong(ctx context.Context, title, artist string) []Result {
	return a.collect(func(p Provider) ([]ImageRef, bool) {
		lookup, ok := p.(SongLookup)
		if !ok {
			return nil, false
		}
		images, err := lookup.LookupBySong(ctx, title, artist)
		if err != nil {
			logrus.Warningf("Cover lookup by song on %s: %v", p.Info().Name, err)
			return nil, true
		}
		return images, true
	})
}

// ByAlbum looks up album images on every provider supporting it.
func (a *Aggregator) ByAlbum(ctx context.Context, title, artist string, year int) []Result {
	return a.collect(func(p Provider) ([]ImageRef, bool) {
		lookup, ok := p.(AlbumLookup)
		if !ok {
			return nil, false
		}
		images, err := lookup.LookupByAlbum(ctx, title, artist, year)
		if err != nil {
			logrus.Warningf("Cover lookup by album on %s: %v", p.Info().Name, err)
			return nil, true
		}
		return images, true
	})
}

// ByURL resolves an image from a source url on every provider supporting it.
func (a *Aggregator) ByURL(ctx context.Context, url string) []Result {
	return a.collect(func(p Provider) ([]ImageRef, bool) {
		lookup, ok := p.(URLLookup)
		if !ok {
			return nil, false
		}
		images, err := lookup.LookupByURL(ctx, url)
		if err != nil {
			logrus.Warningf("Cover lookup by url on %s: %v", p.Info().Name, err)
			return nil, true
		}
		return images, true
	})
}

func (a *Aggregator) collect(lookup func(Provider) ([]ImageRef, bool)) []Result {
	results := []Result{}
	for _, provider := range a.providers {
		if !provider.Active() {
			continue
		}
		images, supported := lookup(provider)
		if !supported {
			continue
		}
		info := provider.Info()
		for i := range images {
			images[i].Grade = Grade(info.Weight, images[i].SizeBytes, images[i].Width, images[i].Height)
		}
		// stable: equal grades keep provider order
		sort.SliceStable(images, func(i, j int) bool {
			return images[i].Grade > images[j].Grade
		})
		results = append(results, Result{Provider: info, Images: images})
	}
	// providers with better best-images first, group order stable
	sort.SliceStable(results, func(i, j int) bool {
		return bestGrade(results[i]) > bestGrade(results[j])
	})
	return results
}

func bestGrade(result Result) int {
	if len(result.Images) == 0 {
		return -1 << 31
	}
	return result.Images[0].Grade
}
