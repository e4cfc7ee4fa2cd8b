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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
	"tryffel.net/go/audiocontrol/ratelimit"
)

// DefaultProviderTimeout bounds a single provider HTTP call.
const DefaultProviderTimeout = 10 * time.Second

// ArtistInfoProvider looks up enrichment content for an artist by mbid.
// Providers are consulted only on cache miss and never retried within one
// enrichment pass.
type ArtistInfoProvider interface {
	// Name is the service name, also the rate-limit key and cache prefix.
	Name() string
	// ArtistInfo returns provider content for the artist. A nil record with
	// nil error means the provider knows nothing about the artist.
	ArtistInfo(ctx context.Context, mbid string) (*providerArtist, error)
}

// providerArtist is one provider's contribution before merging.
type providerArtist struct {
	Biography  string   `json:"biography,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Thumbnails []string `json:"thumbnails,omitempty"`
	Banners    []string `json:"banners,omitempty"`
	FanArt     []string `json:"fanart,omitempty"`
}

func (p *providerArtist) empty() bool {
	return p == nil || (p.Biography == "" && len(p.Genres) == 0 &&
		len(p.Thumbnails) == 0 && len(p.Banners) == 0 && len(p.FanArt) == 0)
}

// getJSON runs one rate-limited GET and decodes the body. 404 maps to
// ErrNotFound so callers can cache the negative.
func getJSON(ctx context.Context, limiter *ratelimit.Registry, client *http.Client,
	service, url string, header map[string]string, dest interface{}) error {

	if err := limiter.Wait(ctx, service); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", service, err)
	}
	req.Header.Set("User-Agent", "audiocontrol/1.0")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%w: %s: %v", interfaces.ErrTransport, service, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.ProviderCalls.WithLabelValues(service, "not_found").Inc()
		return interfaces.ErrNotFound
	case resp.StatusCode != http.StatusOK:
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
