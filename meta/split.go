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

import "strings"

// separators in priority order. The first separator found in the string is
// applied, then each part is split again with the full list. 'feat.' binds
// looser than '&' on purpose: "A & B feat. C" is (A & B) featuring C first.
var separators = []string{
	" feat. ",
	" ft. ",
	" featuring ",
	" vs. ",
	" versus ",
	" & ",
	" and ",
	",",
}

// SplitResult keeps the original string alongside the split names.
type SplitResult struct {
	Original string   `json:"original"`
	Names    []string `json:"names"`
}

// Split breaks a multi-artist string into individual names with the
// prioritised separator list applied recursively. A string without
// separators yields itself.
func Split(artist string) SplitResult {
	result := SplitResult{Original: artist}
	for _, part := range splitRecursive(artist) {
		name := strings.TrimSpace(part)
		if name != "" {
			result.Names = append(result.Names, name)
		}
	}
	return result
}

// SimpleSplit applies only the first matching separator, without recursion.
// Used where collaborators should stay grouped, e.g. "A feat. B & C" yields
// "A" and "B & C".
func SimpleSplit(artist string) SplitResult {
	result := SplitResult{Original: artist}
	parts := []string{artist}
	for _, sep := range separators {
		if strings.Contains(artist, sep) {
			parts = strings.Split(artist, sep)
			break
		}
	}
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name != "" {
			result.Names = append(result.Names, name)
		}
	}
	return result
}

func splitRecursive(s string) []string {
	for _, sep := range separators {
		if strings.Contains(s, sep) {
			out := []string{}
			for _, part := range strings.Split(s, sep) {
				out = append(out, splitRecursive(part)...)
			}
			return out
		}
	}
	return []string{s}
}
