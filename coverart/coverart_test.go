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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name                string
		weight, size, w, h  int
		want                int
	}{
		{"curated large", WeightCurated, 200 * 1024, 1000, 1000, 3 + 1 + 2},
		{"curated tiny", WeightCurated, 5 * 1024, 90, 90, 3 - 1 - 2},
		{"neutral buckets", WeightStreaming, 50 * 1024, 640, 640, 1 + 0 + 1},
		{"medium resolution", WeightRichMedia, 0, 500, 500, 2},
		{"small resolution", WeightLocal, 0, 250, 250, -1},
		{"unknown everything", WeightLocal, 0, 0, 0, 0},
		{"smaller dimension counts", WeightLocal, 0, 2000, 90, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grade(tt.weight, tt.size, tt.w, tt.h))
		})
	}
}

// stubProvider serves canned images for grading tests.
type stubProvider struct {
	info   ProviderInfo
	images []ImageRef
	active bool
}

func (s *stubProvider) Info() ProviderInfo { return s.info }
func (s *stubProvider) Active() bool       { return s.active }
func (s *stubProvider) LookupByArtist(context.Context, string) ([]ImageRef, error) {
	out := make([]ImageRef, len(s.images))
	copy(out, s.images)
	return out, nil
}

func TestAggregatorGradesAndSorts(t *testing.T) {
	curated := &stubProvider{
		info:   ProviderInfo{Name: "curated", Weight: WeightCurated},
		active: true,
		images: []ImageRef{
			{URL: "small", Width: 90, Height: 90, SizeBytes: 5 * 1024},
			{URL: "large", Width: 1200, Height: 1200, SizeBytes: 300 * 1024},
		},
	}
	local := &stubProvider{
		info:   ProviderInfo{Name: "local", Weight: WeightLocal},
		active: true,
		images: []ImageRef{{URL: "file", Width: 500, Height: 500, SizeBytes: 50 * 1024}},
	}
	inactive := &stubProvider{info: ProviderInfo{Name: "off"}, active: false}

	aggregator := NewAggregator(curated, local, inactive)
	results := aggregator.ByArtist(context.Background(), "x")

	require.Len(t, results, 2, "inactive providers are skipped")
	// per-provider grouping preserved, best provider first
	assert.Equal(t, "curated", results[0].Provider.Name)
	// within a provider images sort by grade descending
	assert.Equal(t, "large", results[0].Images[0].URL)
	assert.Equal(t, 6, results[0].Images[0].Grade)

	// best available is results[0].images[0]
	best := results[0].Images[0].Grade
	for _, result := range results {
		for _, img := range result.Images {
			assert.LessOrEqual(t, img.Grade, best)
		}
	}
}

func TestAggregatorSkipsUnsupportedLookups(t *testing.T) {
	// stubProvider implements only ArtistLookup
	provider := &stubProvider{info: ProviderInfo{Name: "p"}, active: true}
	aggregator := NewAggregator(provider)

	assert.Empty(t, aggregator.BySong(context.Background(), "t", "a"))
	assert.Empty(t, aggregator.ByURL(context.Background(), "file:///x"))
	assert.Len(t, aggregator.ByArtist(context.Background(), "a"), 1)
}
