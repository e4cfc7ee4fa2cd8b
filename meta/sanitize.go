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

// Package meta enriches raw player metadata with canonical identity: artist
// name sanitisation and splitting, MusicBrainz id resolution and multi-source
// lookups merged into ArtistMeta records.
package meta

import (
	"strings"
	"unicode"
)

// punctuation variants normalised before lookups. Tag sources disagree on
// apostrophes and dashes, identity services mostly use the ascii forms.
var punctuationReplacer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"–", "-", // en dash
	"—", "-", // em dash
	" ", " ", // no-break space
)

// Sanitize trims an artist string and normalises whitespace and common
// unicode punctuation.
func Sanitize(artist string) string {
	out := punctuationReplacer.Replace(artist)
	out = strings.TrimSpace(out)

	fields := strings.FieldsFunc(out, unicode.IsSpace)
	return strings.Join(fields, " ")
}
