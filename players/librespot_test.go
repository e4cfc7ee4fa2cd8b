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

package players

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// state events must never clobber the current song, only track_changed
// replaces it.
func TestLibrespotPreservesSongAcrossStateEvents(t *testing.T) {
	l := NewLibrespot("spotify", "", "", true)

	require.NoError(t, l.ReceiveEvent([]byte(`{
		"type": "track_changed",
		"NAME": "Hey Jude",
		"ARTISTS": "The Beatles",
		"ALBUM": "Past Masters",
		"DURATION_MS": 431000,
		"TRACK_ID": "4pbG9SUmWIvsROVLF0zF9s",
		"URI": "spotify:track:4pbG9SUmWIvsROVLF0zF9s"
	}`)))
	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "playing", "POSITION_MS": 0}`)))
	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "paused", "POSITION_MS": 60000}`)))

	song := l.Song()
	require.NotNil(t, song)
	assert.Equal(t, "Hey Jude", song.Title)
	assert.Equal(t, "The Beatles", song.Artist)
	assert.Equal(t, models.StatePaused, l.State())

	position, ok := l.Position()
	require.True(t, ok)
	assert.Equal(t, 60.0, position)
}

func TestLibrespotEventTranslation(t *testing.T) {
	l := NewLibrespot("spotify", "", "", true)
	events := []interfaces.Event{}
	l.SubscribeLocal(func(e interfaces.Event) {
		events = append(events, e)
	})

	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "shuffle_changed", "SHUFFLE": true}`)))
	assert.True(t, l.Shuffle())

	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "repeat_changed", "REPEAT": true}`)))
	assert.Equal(t, models.LoopPlaylist, l.LoopMode())

	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "repeat_changed", "REPEAT": true, "REPEAT_TRACK": true}`)))
	assert.Equal(t, models.LoopTrack, l.LoopMode())

	require.NoError(t, l.ReceiveEvent([]byte(`{"type": "volume_changed", "VOLUME": 65535}`)))
	found := false
	for _, e := range events {
		if e.Type == interfaces.EventVolumeChanged {
			found = true
			assert.Equal(t, 100, e.Volume)
		}
	}
	assert.True(t, found, "volume event not emitted")
}

func TestLibrespotIgnoresKnownNoise(t *testing.T) {
	l := NewLibrespot("spotify", "", "", true)
	for _, eventType := range []string{"loading", "play_request_id_changed", "preloading", "martian"} {
		assert.NoError(t, l.ReceiveEvent([]byte(`{"type": "`+eventType+`"}`)))
	}
	assert.Equal(t, models.StateUnknown, l.State())

	assert.Error(t, l.ReceiveEvent([]byte(`{not json`)), "malformed event must be rejected")
}

func TestLibrespotRejectsCommands(t *testing.T) {
	l := NewLibrespot("spotify", "", "", true)
	err := l.Send(interfaces.Command{Kind: interfaces.CmdPlay})
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedCapability)
}

func TestScanObjects(t *testing.T) {
	stream := strings.Join([]string{
		"{",
		`  "type": "playing",`,
		`  "POSITION_MS": 1000`,
		"}",
		"garbage between objects",
		"{",
		`  "type": "paused"`,
		"}",
	}, "\n")

	objects := [][]byte{}
	err := scanObjects(strings.NewReader(stream), func(payload []byte) {
		objects = append(objects, payload)
	})
	assert.Error(t, err, "scanObjects returns io.EOF at end of stream")
	require.Len(t, objects, 2)
	assert.Contains(t, string(objects[0]), `"playing"`)
	assert.Contains(t, string(objects[1]), `"paused"`)
}
