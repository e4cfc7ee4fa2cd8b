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
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tryffel.net/go/audiocontrol/ratelimit"
)

// ServiceLastFM is the social-tag provider rate-limit key.
const ServiceLastFM = "lastfm"

const lastFMURL = "https://ws.audioscrobbler.com/2.0/"

// LastFM contributes biography and genre tags.
type LastFM struct {
	limiter *ratelimit.Registry
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewLastFM creates the social-tag provider. An empty api key disables it.
func NewLastFM(limiter *ratelimit.Registry, apiKey string, timeout time.Duration) *LastFM {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &LastFM{
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: lastFMURL,
	}
}

// Name implements ArtistInfoProvider.
func (l *LastFM) Name() string { return ServiceLastFM }

// Enabled tells whether the provider is configured.
func (l *LastFM) Enabled() bool { return l.apiKey != "" }

type lastFMArtistInfo struct {
	Artist struct {
		Bio struct {
			Summary string `json:"summary"`
			Content string `json:"content"`
		} `json:"bio"`
		Tags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"artist"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// ArtistInfo implements ArtistInfoProvider.
func (l *LastFM) ArtistInfo(ctx context.Context, mbid string) (*providerArtist, error) {
	query := url.Values{}
	query.Set("method", "artist.getinfo")
	query.Set("mbid", mbid)
	query.Set("api_key", l.apiKey)
	query.Set("format", "json")
	target := fmt.Sprintf("%s?%s", l.baseURL, query.Encode())

	result := lastFMArtistInfo{}
	if err := getJSON(ctx, l.limiter, l.client, ServiceLastFM, target, nil, &result); err != nil {
		return nil, err
	}
	if result.Error != 0 {
		// error 6 means unknown artist
		return nil, nil
	}

	info := &providerArtist{Biography: result.Artist.Bio.Content}
	if info.Biography == "" {
		info.Biography = result.Artist.Bio.Summary
	}
	for _, tag := range result.Artist.Tags.Tag {
		info.Genres = append(info.Genres, tag.Name)
	}
	if info.empty() {
		return nil, nil
	}
	return info, nil
}
