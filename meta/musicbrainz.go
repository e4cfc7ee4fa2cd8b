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
	"strings"
	"time"

	"tryffel.net/go/audiocontrol/ratelimit"
)

// ServiceMusicBrainz is the identity service rate-limit key.
const ServiceMusicBrainz = "musicbrainz"

const musicBrainzURL = "https://musicbrainz.org/ws/2"

// MusicBrainz resolves artist names to mbids and contributes genre tags.
type MusicBrainz struct {
	limiter *ratelimit.Registry
	client  *http.Client
	baseURL string
}

// NewMusicBrainz creates the identity resolver.
func NewMusicBrainz(limiter *ratelimit.Registry, timeout time.Duration) *MusicBrainz {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &MusicBrainz{
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		baseURL: musicBrainzURL,
	}
}

type mbArtistSearch struct {
	Artists []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Score int    `json:"score"`
		Tags  []struct {
			Name string `json:"name"`
		} `json:"tags"`
	} `json:"artists"`
}

// ResolveArtist searches name and returns matching mbids plus genre tags of
// the best match. An empty mbid list with nil error means the name did not
// resolve.
func (m *MusicBrainz) ResolveArtist(ctx context.Context, name string) ([]string, []string, error) {
	query := url.Values{}
	query.Set("query", fmt.Sprintf(`artist:"%s"`, name))
	query.Set("fmt", "json")
	query.Set("limit", "5")
	target := fmt.Sprintf("%s/artist?%s", m.baseURL, query.Encode())

	result := mbArtistSearch{}
	if err := getJSON(ctx, m.limiter, m.client, ServiceMusicBrainz, target, nil, &result); err != nil {
		return nil, nil, err
	}

	mbids := []string{}
	genres := []string{}
	for _, artist := range result.Artists {
		// exact name matches count, a fuzzy top hit only with a high score
		exact := strings.EqualFold(artist.Name, name)
		if !exact && (artist.Score < 95 || len(mbids) > 0) {
			continue
		}
		mbids = append(mbids, artist.ID)
		if len(mbids) == 1 {
			for _, tag := range artist.Tags {
				genres = append(genres, tag.Name)
			}
		}
	}
	return mbids, genres, nil
}
