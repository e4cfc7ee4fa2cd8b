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
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/cache"
)

// imageMeta is the cached record under image_meta keys.
type imageMeta struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	SizeBytes int `json:"size_bytes"`
}

// Measurer fills unknown image dimensions and sizes by reading the image
// header. Successful measurements are cached permanently per url, so a
// measured image is never fetched again; failed ones are retried on the next
// lookup.
type Measurer struct {
	cache  *cache.Cache
	client *http.Client
	// maxPerLookup bounds network work per aggregate response
	maxPerLookup int
}

// NewMeasurer creates a measurer over the attribute cache.
func NewMeasurer(attributeCache *cache.Cache) *Measurer {
	return &Measurer{
		cache:        attributeCache,
		client:       &http.Client{Timeout: 10 * time.Second},
		maxPerLookup: 3,
	}
}

// Fill measures images missing dimensions, best first, up to the per-lookup
// budget, and re-grades them.
func (m *Measurer) Fill(ctx context.Context, results []Result) {
	if m == nil || m.cache == nil {
		return
	}
	budget := m.maxPerLookup
	for r := range results {
		for i := range results[r].Images {
			img := &results[r].Images[i]
			if img.Width > 0 || !strings.HasPrefix(img.URL, "http") {
				continue
			}
			if budget == 0 {
				return
			}
			budget--
			meta := m.measure(ctx, img.URL)
			if meta == nil {
				continue
			}
			img.Width = meta.Width
			img.Height = meta.Height
			if img.SizeBytes == 0 {
				img.SizeBytes = meta.SizeBytes
			}
			img.Grade = Grade(results[r].Provider.Weight, img.SizeBytes, img.Width, img.Height)
		}
	}
}

func (m *Measurer) measure(ctx context.Context, url string) *imageMeta {
	key := cache.Key(cache.PrefixImageMeta, url)
	meta := &imageMeta{}
	if ok, err := m.cache.Get(key, meta); err == nil && ok {
		return meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	resp, err := m.client.Do(req)
	if err != nil {
		logrus.Debugf("measure image %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	// the header is enough for dimensions, read a bounded prefix
	prefix, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil
	}
	config, _, err := image.DecodeConfig(strings.NewReader(string(prefix)))
	if err != nil {
		return nil
	}
	meta.Width = config.Width
	meta.Height = config.Height
	meta.SizeBytes = int(resp.ContentLength)
	if meta.SizeBytes < 0 {
		meta.SizeBytes = 0
	}

	if err := m.cache.Set(key, meta, 0); err != nil {
		logrus.Errorf("cache image meta: %v", err)
	}
	return meta
}
