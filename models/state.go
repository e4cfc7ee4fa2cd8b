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

import "strings"

// PlayerState is the playback state of a single controller.
type PlayerState string

const (
	StatePlaying      PlayerState = "Playing"
	StatePaused       PlayerState = "Paused"
	StateStopped      PlayerState = "Stopped"
	StateUnknown      PlayerState = "Unknown"
	StateKilled       PlayerState = "Killed"
	StateDisconnected PlayerState = "Disconnected"
)

// ParsePlayerState parses state from its wire form. Accepts both the canonical
// form and the lowercase form used by inbound events. Unrecognized input maps
// to StateUnknown.
func ParsePlayerState(s string) PlayerState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing", "play":
		return StatePlaying
	case "paused", "pause":
		return StatePaused
	case "stopped", "stop":
		return StateStopped
	case "killed":
		return StateKilled
	case "disconnected":
		return StateDisconnected
	default:
		return StateUnknown
	}
}

// Active returns true for states where the backend is attached to a track,
// that is, playing or paused.
func (s PlayerState) Active() bool {
	return s == StatePlaying || s == StatePaused
}

// LoopMode describes repeat behavior of a player.
type LoopMode string

const (
	LoopNone     LoopMode = "none"
	LoopTrack    LoopMode = "track"
	LoopPlaylist LoopMode = "playlist"
)

// ParseLoopMode parses loop mode from wire form. Both 'song' and 'track' mean
// LoopTrack, some backends use one, some the other. Second return value is
// false for unrecognized input.
func ParseLoopMode(s string) (LoopMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return LoopNone, true
	case "track", "song", "single":
		return LoopTrack, true
	case "playlist", "all":
		return LoopPlaylist, true
	default:
		return LoopNone, false
	}
}
