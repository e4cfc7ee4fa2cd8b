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

package cache

import "strings"

// Separator joins key segments.
const Separator = "::"

// Key prefixes. The module owning a prefix uses these constants, call sites
// never build keys from string literals.
const (
	// PrefixArtistMBID holds resolved artist name -> mbid list.
	PrefixArtistMBID = "artist" + Separator + "mbid"
	// PrefixArtistMBIDPartial holds multi-artist strings where only some
	// names resolved.
	PrefixArtistMBIDPartial = "artist" + Separator + "mbid_partial"
	// PrefixArtistMBIDNotFound is the negative twin of PrefixArtistMBID.
	PrefixArtistMBIDNotFound = "artist" + Separator + "mbid_not_found"
	// PrefixArtistSplit holds full split results for an artist string.
	PrefixArtistSplit = "artist" + Separator + "split"
	// PrefixArtistSimpleSplit holds separator-only split results.
	PrefixArtistSimpleSplit = "artist" + Separator + "simple_split"
	// PrefixArtistMetadata holds merged ArtistMeta records keyed by mbid.
	PrefixArtistMetadata = "artist" + Separator + "metadata"
	// PrefixAlbumMBID holds album title+artist -> release mbid.
	PrefixAlbumMBID = "album" + Separator + "mbid"
	// PrefixImageMeta holds image dimensions and sizes keyed by url.
	PrefixImageMeta = "image_meta"
)

// Key joins a prefix and an identifier.
func Key(prefix, id string) string {
	return prefix + Separator + id
}

// negativeTwin returns the not-found key for a positive key and whether the
// key has one. artist::mbid::Name -> artist::mbid_not_found::Name.
func negativeTwin(key string) (string, bool) {
	if strings.HasPrefix(key, PrefixArtistMBID+Separator) {
		return PrefixArtistMBIDNotFound + strings.TrimPrefix(key, PrefixArtistMBID), true
	}
	return "", false
}

// isNegative tells whether key is a not-found marker.
func isNegative(key string) bool {
	segments := strings.Split(key, Separator)
	for _, s := range segments {
		if strings.HasSuffix(s, "_not_found") {
			return true
		}
	}
	return false
}

// positiveTwin returns the positive key for a negative key.
func positiveTwin(key string) (string, bool) {
	if strings.HasPrefix(key, PrefixArtistMBIDNotFound+Separator) {
		return PrefixArtistMBID + strings.TrimPrefix(key, PrefixArtistMBIDNotFound), true
	}
	return "", false
}
