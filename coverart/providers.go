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

package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
	"tryffel.net/go/audiocontrol/ratelimit"
)

// ResolveFunc maps an artist name to mbids, served by the attribute cache.
type ResolveFunc func(name string) []string

const coverTimeout = 10 * time.Second

// FanartCovers serves curated artist images from fanart.tv.
type FanartCovers struct {
	limiter *ratelimit.Registry
	client  *http.Client
	apiKey  string
	resolve ResolveFunc
	baseURL string
}

// NewFanartCovers creates the curated provider. Lookups need an mbid, names
// resolve through resolve.
func NewFanartCovers(limiter *ratelimit.Registry, apiKey string, resolve ResolveFunc) *FanartCovers {
	return &FanartCovers{
		limiter: limiter,
		client:  &http.Client{Timeout: coverTimeout},
		apiKey:  apiKey,
		resolve: resolve,
		baseURL: "https://webservice.fanart.tv/v3/music",
	}
}

// Info implements Provider.
func (f *FanartCovers) Info() ProviderInfo {
	return ProviderInfo{Name: "fanart.tv", Weight: WeightCurated}
}

// Active implements Provider.
func (f *FanartCovers) Active() bool { return f.apiKey != "" }

// LookupByArtist implements ArtistLookup.
func (f *FanartCovers) LookupByArtist(ctx context.Context, name string) ([]ImageRef, error) {
	mbids := f.resolve(name)
	if len(mbids) == 0 {
		return nil, nil
	}
	target := fmt.Sprintf("%s/%s?api_key=%s", f.baseURL, mbids[0], f.apiKey)
	result := struct {
		Thumbs []struct {
			URL string `json:"url"`
		} `json:"artistthumb"`
		Backgrounds []struct {
			URL string `json:"url"`
		} `json:"artistbackground"`
	}{}
	if err := coverGet(ctx, f.limiter, f.client, "fanarttv", target, &result); err != nil {
		return nil, err
	}
	images := []ImageRef{}
	for _, img := range result.Thumbs {
		images = append(images, ImageRef{URL: img.URL})
	}
	for _, img := range result.Backgrounds {
		images = append(images, ImageRef{URL: img.URL})
	}
	return images, nil
}

// AudioDBCovers serves artist and album art from TheAudioDB.
type AudioDBCovers struct {
	limiter *ratelimit.Registry
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewAudioDBCovers creates the rich-media provider.
func NewAudioDBCovers(limiter *ratelimit.Registry, apiKey string) *AudioDBCovers {
	return &AudioDBCovers{
		limiter: limiter,
		client:  &http.Client{Timeout: coverTimeout},
		apiKey:  apiKey,
		baseURL: "https://www.theaudiodb.com/api/v1/json",
	}
}

// Info implements Provider.
func (a *AudioDBCovers) Info() ProviderInfo {
	return ProviderInfo{Name: "theaudiodb", Weight: WeightRichMedia}
}

// Active implements Provider.
func (a *AudioDBCovers) Active() bool { return a.apiKey != "" }

// LookupByArtist implements ArtistLookup.
func (a *AudioDBCovers) LookupByArtist(ctx context.Context, name string) ([]ImageRef, error) {
	target := fmt.Sprintf("%s/%s/search.php?s=%s", a.baseURL, a.apiKey, url.QueryEscape(name))
	result := struct {
		Artists []struct {
			Thumb  string `json:"strArtistThumb"`
			FanArt string `json:"strArtistFanart"`
		} `json:"artists"`
	}{}
	if err := coverGet(ctx, a.limiter, a.client, "theaudiodb", target, &result); err != nil {
		return nil, err
	}
	images := []ImageRef{}
	for _, artist := range result.Artists {
		if artist.Thumb != "" {
			images = append(images, ImageRef{URL: artist.Thumb})
		}
		if artist.FanArt != "" {
			images = append(images, ImageRef{URL: artist.FanArt})
		}
	}
	return images, nil
}

// LookupByAlbum implements AlbumLookup.
func (a *AudioDBCovers) LookupByAlbum(ctx context.Context, title, artist string, _ int) ([]ImageRef, error) {
	target := fmt.Sprintf("%s/%s/searchalbum.php?s=%s&a=%s",
		a.baseURL, a.apiKey, url.QueryEscape(artist), url.QueryEscape(title))
	result := struct {
		Albums []struct {
			Thumb string `json:"strAlbumThumb"`
		} `json:"album"`
	}{}
	if err := coverGet(ctx, a.limiter, a.client, "theaudiodb", target, &result); err != nil {
		return nil, err
	}
	images := []ImageRef{}
	for _, album := range result.Albums {
		if album.Thumb != "" {
			images = append(images, ImageRef{URL: album.Thumb})
		}
	}
	return images, nil
}

// SpotifyCovers serves track and album art from the spotify web api. Needs a
// bearer token, absent token means inactive.
type SpotifyCovers struct {
	limiter *ratelimit.Registry
	client  *http.Client
	// Token returns a current bearer token, empty when not authenticated.
	token   func() string
	baseURL string
}

// NewSpotifyCovers creates the streaming-service provider.
func NewSpotifyCovers(limiter *ratelimit.Registry, token func() string) *SpotifyCovers {
	return &SpotifyCovers{
		limiter: limiter,
		client:  &http.Client{Timeout: coverTimeout},
		token:   token,
		baseURL: "https://api.spotify.com/v1",
	}
}

// Info implements Provider.
func (s *SpotifyCovers) Info() ProviderInfo {
	return ProviderInfo{Name: "spotify", Weight: WeightStreaming}
}

// Active implements Provider.
func (s *SpotifyCovers) Active() bool { return s.token() != "" }

type spotifySearch struct {
	Tracks struct {
		Items []struct {
			Album spotifyAlbum `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
	Albums struct {
		Items []spotifyAlbum `json:"items"`
	} `json:"albums"`
}

type spotifyAlbum struct {
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
}

// LookupBySong implements SongLookup.
func (s *SpotifyCovers) LookupBySong(ctx context.Context, title, artist string) ([]ImageRef, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	query.Set("type", "track")
	query.Set("limit", "3")
	return s.search(ctx, query)
}

// LookupByAlbum implements AlbumLookup.
func (s *SpotifyCovers) LookupByAlbum(ctx context.Context, title, artist string, year int) ([]ImageRef, error) {
	q := fmt.Sprintf("album:%s artist:%s", title, artist)
	if year > 0 {
		q = fmt.Sprintf("%s year:%d", q, year)
	}
	query := url.Values{}
	query.Set("q", q)
	query.Set("type", "album")
	query.Set("limit", "3")
	return s.search(ctx, query)
}

func (s *SpotifyCovers) search(ctx context.Context, query url.Values) ([]ImageRef, error) {
	if err := s.limiter.Wait(ctx, "spotify"); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}
	target := fmt.Sprintf("%s/search?%s", s.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token())

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("spotify", "error").Inc()
		return nil, fmt.Errorf("%w: spotify: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ProviderCalls.WithLabelValues("spotify", "error").Inc()
		return nil, fmt.Errorf("%w: spotify returned status %d", interfaces.ErrTransport, resp.StatusCode)
	}

	result := spotifySearch{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: parse spotify response: %v", interfaces.ErrTransport, err)
	}
	metrics.ProviderCalls.WithLabelValues("spotify", "ok").Inc()

	images := []ImageRef{}
	appendAlbum := func(album spotifyAlbum) {
		for _, img := range album.Images {
			images = append(images, ImageRef{URL: img.URL, Width: img.Width, Height: img.Height})
		}
	}
	for _, item := range result.Tracks.Items {
		appendAlbum(item.Album)
	}
	for _, album := range result.Albums.Items {
		appendAlbum(album)
	}
	return images, nil
}

// coverGet runs one rate-limited GET and decodes JSON.
func coverGet(ctx context.Context, limiter *ratelimit.Registry, client *http.Client,
	service, target string, dest interface{}) error {

	if err := limiter.Wait(ctx, service); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "audiocontrol/1.0")

	resp, err := client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%w: %s: %v", interfaces.ErrTransport, service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.ProviderCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%w: %s returned status %d", interfaces.ErrTransport, service, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		metrics.ProviderCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%w: parse %s response: %v", interfaces.ErrTransport, service, err)
	}
	metrics.ProviderCalls.WithLabelValues(service, "ok").Inc()
	return nil
}
