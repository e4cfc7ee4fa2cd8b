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
	"reflect"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "The Beatles", "The Beatles"},
		{"trim", "  The Beatles \n", "The Beatles"},
		{"collapse whitespace", "The\t Beatles", "The Beatles"},
		{"unicode apostrophe", "Guns N’ Roses", "Guns N' Roses"},
		{"em dash", "Sigur — Rós", "Sigur - Rós"},
		{"no-break space", "The Beatles", "The Beatles"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single artist", "The Beatles", []string{"The Beatles"}},
		{"feat", "A feat. B", []string{"A", "B"}},
		{"ft", "A ft. B", []string{"A", "B"}},
		{"featuring", "A featuring B", []string{"A", "B"}},
		{"vs", "A vs. B", []string{"A", "B"}},
		{"ampersand", "Simon & Garfunkel", []string{"Simon", "Garfunkel"}},
		{"and", "A and B", []string{"A", "B"}},
		{"comma", "A, B, C", []string{"A", "B", "C"}},
		{"recursive", "A feat. B & C", []string{"A", "B", "C"}},
		{"priority over comma", "A feat. B, C", []string{"A", "B", "C"}},
		{"empty part dropped", "A, , B", []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if got.Original != tt.in {
				t.Errorf("Split(%q).Original = %q", tt.in, got.Original)
			}
			if !reflect.DeepEqual(got.Names, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.in, got.Names, tt.want)
			}
		})
	}
}

func TestSimpleSplit(t *testing.T) {
	// only the first matching separator applies, no recursion
	got := SimpleSplit("A feat. B & C")
	want := []string{"A", "B & C"}
	if !reflect.DeepEqual(got.Names, want) {
		t.Errorf("SimpleSplit() = %v, want %v", got.Names, want)
	}
}
