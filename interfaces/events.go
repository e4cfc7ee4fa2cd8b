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
	"tryffel.net/go/audiocontrol/models"
)

// EventType describes the type of an event on the bus. Wire form is snake_case.
type EventType string

const (
	EventStateChanged          EventType = "state_changed"
	EventSongChanged           EventType = "song_changed"
	EventPositionChanged       EventType = "position_changed"
	EventLoopModeChanged       EventType = "loop_mode_changed"
	EventShuffleChanged        EventType = "shuffle_changed"
	EventCapabilitiesChanged   EventType = "capabilities_changed"
	EventQueueChanged          EventType = "queue_changed"
	EventDatabaseUpdating      EventType = "database_updating"
	EventSongInformationUpdate EventType = "song_information_update"
	EventMetadataChanged       EventType = "metadata_changed"
	EventVolumeChanged         EventType = "volume_changed"
)

// Source identifies the controller an event originated from, captured at
// emission time. IsActive reflects the arbitration result at that instant,
// subscribers use it instead of re-subscribing when the active player changes.
type Source struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Kind       string `json:"kind"`
	IsActive   bool   `json:"is_active"`
}

// Event is a tagged variant over all bus event payloads. Only the fields for
// Type are set.
type Event struct {
	Type   EventType `json:"type"`
	Source Source    `json:"source"`

	// EventStateChanged
	State models.PlayerState `json:"state,omitempty"`
	// EventSongChanged
	Song *models.Song `json:"song,omitempty"`
	// EventPositionChanged: position in seconds, optional duration
	Position float64  `json:"position,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	// EventLoopModeChanged
	LoopMode models.LoopMode `json:"loop_mode,omitempty"`
	// EventShuffleChanged
	Shuffle bool `json:"shuffle,omitempty"`
	// EventCapabilitiesChanged
	Capabilities []string `json:"capabilities,omitempty"`
	// EventQueueChanged
	Queue []models.QueueEntry `json:"queue,omitempty"`
	// EventDatabaseUpdating
	Percent float64 `json:"percent,omitempty"`
	// EventSongInformationUpdate: partial song, only changed fields set
	SongUpdate *models.Song `json:"song_update,omitempty"`
	// EventMetadataChanged
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// EventVolumeChanged: volume percent
	Volume int  `json:"volume,omitempty"`
	Muted  bool `json:"muted,omitempty"`
}

// EventPublisher accepts events for distribution. Implemented by the event bus.
type EventPublisher interface {
	Publish(event Event)
}
