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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

func TestGenericReceiveEvent(t *testing.T) {
	g := NewGeneric("gp", nil, "")
	events := []interfaces.Event{}
	g.SubscribeLocal(func(e interfaces.Event) {
		events = append(events, e)
	})

	require.NoError(t, g.ReceiveEvent([]byte(`{"type":"state_changed","state":"playing"}`)))
	assert.Equal(t, models.StatePlaying, g.State())
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.EventStateChanged, events[0].Type)
	assert.Equal(t, "gp", events[0].Source.PlayerName)

	// same state again: no duplicate event
	require.NoError(t, g.ReceiveEvent([]byte(`{"type":"state_changed","state":"playing"}`)))
	assert.Len(t, events, 1)

	require.NoError(t, g.ReceiveEvent([]byte(
		`{"type":"song_changed","song":{"title":"T","artist":"A","uri":"u:1"}}`)))
	require.NotNil(t, g.Song())
	assert.Equal(t, "T", g.Song().Title)

	require.NoError(t, g.ReceiveEvent([]byte(`{"type":"position_changed","position":12.5}`)))
	position, ok := g.Position()
	require.True(t, ok)
	assert.Equal(t, 12.5, position)

	require.NoError(t, g.ReceiveEvent([]byte(`{"type":"loop_mode_changed","loop_mode":"song"}`)))
	assert.Equal(t, models.LoopTrack, g.LoopMode())

	require.NoError(t, g.ReceiveEvent([]byte(`{"type":"shuffle_changed","shuffle":true}`)))
	assert.True(t, g.Shuffle())

	require.NoError(t, g.ReceiveEvent([]byte(
		`{"type":"queue_changed","queue":[{"title":"T1"},{"title":"T2"}]}`)))
	queue := g.Queue()
	require.Len(t, queue, 2)
	assert.Equal(t, 1, queue[1].Position)

	// unknown types are ignored silently
	assert.NoError(t, g.ReceiveEvent([]byte(`{"type":"weather_changed"}`)))
	// malformed payloads are validation errors
	assert.ErrorIs(t, g.ReceiveEvent([]byte(`{"type":"loop_mode_changed","loop_mode":"x"}`)),
		interfaces.ErrInvalidArgument)
	assert.ErrorIs(t, g.ReceiveEvent([]byte(`{"type":"song_changed"}`)), interfaces.ErrInvalidArgument)
}

func TestGenericCommands(t *testing.T) {
	caps := interfaces.NewCapabilities(interfaces.CapPlay, interfaces.CapPause,
		interfaces.CapPlayPause, interfaces.CapQueue, interfaces.CapSeek)
	g := NewGeneric("gp", caps, models.StateStopped)

	assert.Equal(t, models.StateStopped, g.State())
	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdPlay}))
	assert.Equal(t, models.StatePlaying, g.State())

	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdPlayPause}))
	assert.Equal(t, models.StatePaused, g.State())

	err := g.Send(interfaces.Command{Kind: interfaces.CmdNext})
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedCapability)

	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdAddTrack,
		Track: &interfaces.AddTrack{URI: "u:1", Title: "T1"}}))
	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdAddTrack,
		Track: &interfaces.AddTrack{URI: "u:2", Title: "T2"}}))
	assert.Len(t, g.Queue(), 2)

	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdRemoveTrack, Position: 0}))
	queue := g.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "u:2", queue[0].Song.URI)
	assert.Equal(t, 0, queue[0].Position, "positions renumber after removal")

	assert.ErrorIs(t, g.Send(interfaces.Command{Kind: interfaces.CmdRemoveTrack, Position: 5}),
		interfaces.ErrInvalidArgument)

	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdPlayQueueIndex, QueueIndex: 0}))
	assert.Equal(t, models.StatePlaying, g.State())
	assert.Equal(t, "u:2", g.Song().URI)

	require.NoError(t, g.Send(interfaces.Command{Kind: interfaces.CmdClearQueue}))
	assert.Empty(t, g.Queue())
}

func TestGenericAlwaysReceivesEvents(t *testing.T) {
	g := NewGeneric("gp", interfaces.NewCapabilities(interfaces.CapPlay), "")
	assert.True(t, g.Capabilities().Has(interfaces.CapReceivesEvents))
}
