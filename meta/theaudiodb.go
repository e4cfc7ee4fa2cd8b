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
	"time"

	"tryffel.net/go/audiocontrol/ratelimit"
)

// ServiceTheAudioDB is the rich-media provider rate-limit key.
const ServiceTheAudioDB = "theaudiodb"

const theAudioDBURL = "https://www.theaudiodb.com/api/v1/json"

// TheAudioDB contributes images, biography fallback and genre.
type TheAudioDB struct {
	limiter *ratelimit.Registry
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewTheAudioDB creates the rich-media provider. An empty api key disables it.
func NewTheAudioDB(limiter *ratelimit.Registry, apiKey string, timeout time.Duration) *TheAudioDB {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &TheAudioDB{
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: theAudioDBURL,
	}
}

// Name implements ArtistInfoProvider.
func (t *TheAudioDB) Name() string { return ServiceTheAudioDB }

// Enabled tells whether the provider is configured.
func (t *TheAudioDB) Enabled() bool { return t.apiKey != "" }

type audioDBArtist struct {
	Artists []struct {
		Biography string `json:"strBiographyEN"`
		Genre     string `json:"strGenre"`
		Thumb     string `json:"strArtistThumb"`
		Banner    string `json:"strArtistBanner"`
		FanArt    string `json:"strArtistFanart"`
		FanArt2   string `json:"strArtistFanart2"`
		FanArt3   string `json:"strArtistFanart3"`
	} `json:"artists"`
}

// ArtistInfo implements ArtistInfoProvider.
func (t *TheAudioDB) ArtistInfo(ctx context.Context, mbid string) (*providerArtist, error) {
	target := fmt.Sprintf("%s/%s/artist-mb.php?i=%s", t.baseURL, t.apiKey, mbid)

	result := audioDBArtist{}
	if err := getJSON(ctx, t.limiter, t.client, ServiceTheAudioDB, target, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Artists) == 0 {
		return nil, nil
	}

	artist := result.Artists[0]
	info := &providerArtist{Biography: artist.Biography}
	if artist.Genre != "" {
		info.Genres = append(info.Genres, artist.Genre)
	}
	if artist.Thumb != "" {
		info.Thumbnails = append(info.Thumbnails, artist.Thumb)
	}
	if artist.Banner != "" {
		info.Banners = append(info.Banners, artist.Banner)
	}
	for _, art := range []string{artist.FanArt, artist.FanArt2, artist.FanArt3} {
		if art != "" {
			info.FanArt = append(info.FanArt, art)
		}
	}
	if info.empty() {
		return nil, nil
	}
	return info, nil
}
