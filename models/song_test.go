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

import "testing"

func TestSongSameIdentity(t *testing.T) {
	a := &Song{Title: "Hey Jude", Artist: "The Beatles", URI: "track:1"}
	tests := []struct {
		name  string
		other *Song
		want  bool
	}{
		{"same", &Song{Title: "Hey Jude", Artist: "The Beatles", URI: "track:1"}, true},
		{"metadata does not count", &Song{Title: "Hey Jude", Artist: "The Beatles", URI: "track:1",
			Album: "Past Masters", Liked: true}, true},
		{"different title", &Song{Title: "Let It Be", Artist: "The Beatles", URI: "track:1"}, false},
		{"different uri", &Song{Title: "Hey Jude", Artist: "The Beatles", URI: "track:2"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.SameIdentity(tt.other); got != tt.want {
				t.Errorf("SameIdentity() = %v, want %v", got, tt.want)
			}
		})
	}

	var nilSong *Song
	if !nilSong.SameIdentity(nil) {
		t.Error("nil songs should be identical")
	}
}

func TestSongCopy(t *testing.T) {
	song := &Song{Title: "T", Metadata: map[string]interface{}{"k": "v"}}
	clone := song.Copy()
	clone.Metadata["k"] = "changed"
	if song.Metadata["k"] != "v" {
		t.Error("Copy() shares metadata map")
	}

	var nilSong *Song
	if nilSong.Copy() != nil {
		t.Error("Copy() of nil should be nil")
	}
}

func TestParsePlayerState(t *testing.T) {
	tests := []struct {
		in   string
		want PlayerState
	}{
		{"playing", StatePlaying},
		{"Playing", StatePlaying},
		{"paused", StatePaused},
		{"stopped", StateStopped},
		{"killed", StateKilled},
		{"nonsense", StateUnknown},
		{"", StateUnknown},
	}
	for _, tt := range tests {
		if got := ParsePlayerState(tt.in); got != tt.want {
			t.Errorf("ParsePlayerState(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseLoopMode(t *testing.T) {
	tests := []struct {
		in     string
		want   LoopMode
		wantOk bool
	}{
		{"none", LoopNone, true},
		{"song", LoopTrack, true},
		{"track", LoopTrack, true},
		{"playlist", LoopPlaylist, true},
		{"all", LoopPlaylist, true},
		{"forever", LoopNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseLoopMode(tt.in)
		if got != tt.want || ok != tt.wantOk {
			t.Errorf("ParseLoopMode(%q) = %s, %v, want %s, %v", tt.in, got, ok, tt.want, tt.wantOk)
		}
	}
}
