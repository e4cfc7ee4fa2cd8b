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

// ServiceFanartTV is the curated image provider rate-limit key.
const ServiceFanartTV = "fanarttv"

const fanartTVURL = "https://webservice.fanart.tv/v3/music"

// FanartTV contributes curated artist images. Highest image priority in the
// merge.
type FanartTV struct {
	limiter *ratelimit.Registry
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewFanartTV creates the curated image provider. An empty api key disables
// it.
func NewFanartTV(limiter *ratelimit.Registry, apiKey string, timeout time.Duration) *FanartTV {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &FanartTV{
		limiter: limiter,
		client:  &http.Client{Timeout: timeout},
		apiKey:  apiKey,
		baseURL: fanartTVURL,
	}
}

// Name implements ArtistInfoProvider.
func (f *FanartTV) Name() string { return ServiceFanartTV }

// Enabled tells whether the provider is configured.
func (f *FanartTV) Enabled() bool { return f.apiKey != "" }

type fanartImage struct {
	URL   string `json:"url"`
	Likes string `json:"likes"`
}

type fanartArtist struct {
	Thumbs     []fanartImage `json:"artistthumb"`
	Backgrounds []fanartImage `json:"artistbackground"`
	Banners    []fanartImage `json:"musicbanner"`
}

// ArtistInfo implements ArtistInfoProvider.
func (f *FanartTV) ArtistInfo(ctx context.Context, mbid string) (*providerArtist, error) {
	target := fmt.Sprintf("%s/%s?api_key=%s", f.baseURL, mbid, f.apiKey)

	result := fanartArtist{}
	if err := getJSON(ctx, f.limiter, f.client, ServiceFanartTV, target, nil, &result); err != nil {
		return nil, err
	}

	info := &providerArtist{}
	for _, img := range result.Thumbs {
		info.Thumbnails = append(info.Thumbnails, img.URL)
	}
	for _, img := range result.Banners {
		info.Banners = append(info.Banners, img.URL)
	}
	for _, img := range result.Backgrounds {
		info.FanArt = append(info.FanArt, img.URL)
	}
	if info.empty() {
		return nil, nil
	}
	return info, nil
}
