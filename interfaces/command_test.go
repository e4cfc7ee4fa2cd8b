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

package interfaces

import (
	"errors"
	"testing"

	"tryffel.net/go/audiocontrol/models"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		body    []byte
		want    Command
		wantErr bool
	}{
		{name: "play", wire: "play", want: Command{Kind: CmdPlay}},
		{name: "playpause", wire: "playpause", want: Command{Kind: CmdPlayPause}},
		{name: "play with argument", wire: "play:1", wantErr: true},
		{name: "seek", wire: "seek:12.5", want: Command{Kind: CmdSeek, Seconds: 12.5}},
		{name: "seek malformed", wire: "seek:abc", wantErr: true},
		{name: "seek missing argument", wire: "seek", wantErr: true},
		{name: "set loop playlist", wire: "set_loop:playlist",
			want: Command{Kind: CmdSetLoop, LoopMode: models.LoopPlaylist}},
		{name: "set loop song alias", wire: "set_loop:song",
			want: Command{Kind: CmdSetLoop, LoopMode: models.LoopTrack}},
		{name: "set loop invalid", wire: "set_loop:sometimes", wantErr: true},
		{name: "set random on", wire: "set_random:on", want: Command{Kind: CmdSetRandom, Random: true}},
		{name: "set random 0", wire: "set_random:0", want: Command{Kind: CmdSetRandom, Random: false}},
		{name: "set random true", wire: "set_random:true", want: Command{Kind: CmdSetRandom, Random: true}},
		{name: "set random invalid", wire: "set_random:maybe", wantErr: true},
		{name: "remove track", wire: "remove_track:3", want: Command{Kind: CmdRemoveTrack, Position: 3}},
		{name: "remove track negative", wire: "remove_track:-1", wantErr: true},
		{name: "play queue index", wire: "play_queue_index:0", want: Command{Kind: CmdPlayQueueIndex}},
		{name: "unknown command", wire: "levitate", wantErr: true},
		{name: "add track", wire: "add_track", body: []byte(`{"uri":"spotify:track:x","title":"T"}`),
			want: Command{Kind: CmdAddTrack, Track: &AddTrack{URI: "spotify:track:x", Title: "T"}}},
		{name: "add track without body", wire: "add_track", wantErr: true},
		{name: "add track without uri", wire: "add_track", body: []byte(`{"title":"T"}`), wantErr: true},
		{name: "add track malformed body", wire: "add_track", body: []byte(`{`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.wire, tt.body)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCommand(%q) expected error", tt.wire)
				}
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("ParseCommand(%q) error = %v, want ErrInvalidArgument", tt.wire, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q) unexpected error: %v", tt.wire, err)
			}
			if got.Kind != tt.want.Kind || got.Seconds != tt.want.Seconds ||
				got.LoopMode != tt.want.LoopMode || got.Random != tt.want.Random ||
				got.Position != tt.want.Position || got.QueueIndex != tt.want.QueueIndex {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.wire, got, tt.want)
			}
			if tt.want.Track != nil {
				if got.Track == nil || *got.Track != *tt.want.Track {
					t.Errorf("ParseCommand(%q) track = %+v, want %+v", tt.wire, got.Track, tt.want.Track)
				}
			}
		})
	}
}

func TestCommandRequiredCapability(t *testing.T) {
	tests := []struct {
		cmd  CommandKind
		want Capability
	}{
		{CmdPlay, CapPlay},
		{CmdSeek, CapSeek},
		{CmdAddTrack, CapQueue},
		{CmdClearQueue, CapQueue},
		{CmdKill, CapKill},
	}
	for _, tt := range tests {
		if got := (Command{Kind: tt.cmd}).RequiredCapability(); got != tt.want {
			t.Errorf("RequiredCapability(%s) = %s, want %s", tt.cmd, got, tt.want)
		}
	}
}

func TestCapabilitiesList(t *testing.T) {
	caps := NewCapabilities(CapSeek, CapPlay, CapQueue)
	want := []string{"play", "seek", "queue"}
	got := caps.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
