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

package models

// ArtistMeta is the canonical, enriched description of an artist. It is built by
// the metadata pipeline by merging provider responses. A multi-artist string
// ("A feat. B") produces one ArtistMeta per individual name.
type ArtistMeta struct {
	// Name is the canonical artist name.
	Name string `json:"name"`
	// MBIDs holds zero or more MusicBrainz artist ids. Ambiguous names may
	// resolve to several.
	MBIDs     []string `json:"mbids,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Biography string   `json:"biography,omitempty"`
	// Image lists are parallel in meaning, not in length.
	Thumbnails []string `json:"thumbnails,omitempty"`
	Banners    []string `json:"banners,omitempty"`
	FanArt     []string `json:"fanart,omitempty"`
}

// Merge overlays other on top of a, filling only fields a does not have yet.
// Caller decides priority by merge order: call Merge on the highest-priority
// record first.
func (a *ArtistMeta) Merge(other *ArtistMeta) {
	if other == nil {
		return
	}
	if a.Name == "" {
		a.Name = other.Name
	}
	if len(a.MBIDs) == 0 {
		a.MBIDs = append(a.MBIDs, other.MBIDs...)
	}
	if len(a.Genres) == 0 {
		a.Genres = append(a.Genres, other.Genres...)
	}
	if a.Biography == "" {
		a.Biography = other.Biography
	}
	if len(a.Thumbnails) == 0 {
		a.Thumbnails = append(a.Thumbnails, other.Thumbnails...)
	}
	if len(a.Banners) == 0 {
		a.Banners = append(a.Banners, other.Banners...)
	}
	if len(a.FanArt) == 0 {
		a.FanArt = append(a.FanArt, other.FanArt...)
	}
}

// Empty tells whether merge produced any content beyond the name.
func (a *ArtistMeta) Empty() bool {
	return len(a.MBIDs) == 0 && len(a.Genres) == 0 && a.Biography == "" &&
		len(a.Thumbnails) == 0 && len(a.Banners) == 0 && len(a.FanArt) == 0
}
