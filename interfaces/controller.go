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

// Package interfaces contains contracts that multiple packages use and communicate with.
package interfaces

import (
	"tryffel.net/go/audiocontrol/models"
)

// Capability names a single operation a controller supports. The set is closed,
// backends pick a subset.
type Capability string

const (
	CapPlay           Capability = "play"
	CapPause          Capability = "pause"
	CapStop           Capability = "stop"
	CapPlayPause      Capability = "playpause"
	CapNext           Capability = "next"
	CapPrevious       Capability = "previous"
	CapSeek           Capability = "seek"
	CapSetLoop        Capability = "set_loop"
	CapSetRandom      Capability = "set_random"
	CapQueue          Capability = "queue"
	CapKill           Capability = "kill"
	CapReceivesEvents Capability = "receives_events"
)

// ParseCapability validates a capability name from configuration or wire input.
func ParseCapability(s string) (Capability, bool) {
	switch Capability(s) {
	case CapPlay, CapPause, CapStop, CapPlayPause, CapNext, CapPrevious,
		CapSeek, CapSetLoop, CapSetRandom, CapQueue, CapKill, CapReceivesEvents:
		return Capability(s), true
	}
	return "", false
}

// Capabilities is a set of capabilities. The zero value is an empty set.
type Capabilities map[Capability]bool

// NewCapabilities builds a set from the given capabilities.
func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Has tells whether capability is in the set.
func (c Capabilities) Has(cap Capability) bool {
	return c[cap]
}

// Copy returns an independent copy of the set.
func (c Capabilities) Copy() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		if v {
			out[k] = v
		}
	}
	return out
}

// List returns capabilities as a sorted-stable slice of names for wire output.
func (c Capabilities) List() []string {
	// fixed order keeps api output deterministic
	order := []Capability{CapPlay, CapPause, CapStop, CapPlayPause, CapNext, CapPrevious,
		CapSeek, CapSetLoop, CapSetRandom, CapQueue, CapKill, CapReceivesEvents}
	out := make([]string, 0, len(c))
	for _, cap := range order {
		if c[cap] {
			out = append(out, string(cap))
		}
	}
	return out
}

// MediaController is the uniform surface every backend implements. Read methods
// return the last cached snapshot and never block on the backend transport.
type MediaController interface {
	// Name is the stable per-process unique name, used in URIs.
	Name() string
	// ID is the backend-scoped identity, e.g. host:port or a bus name.
	ID() string
	// Kind is the backend kind tag, e.g. "mpd".
	Kind() string

	// State returns the current playback state snapshot.
	State() models.PlayerState
	// Song returns the current song, or nil when none is known.
	Song() *models.Song
	// Capabilities returns the current capability set. The set may change at
	// runtime, e.g. when an mpris peer disconnects.
	Capabilities() Capabilities
	// LoopMode returns the current loop mode.
	LoopMode() models.LoopMode
	// Shuffle returns the current shuffle flag.
	Shuffle() bool
	// Position returns playback position in seconds. ok is false when the
	// backend does not report position.
	Position() (float64, bool)
	// Queue returns the ordered queue. Backends without a queue return an
	// empty slice, never nil events are fabricated for it.
	Queue() []models.QueueEntry

	// Send validates command against capabilities and forwards it to the
	// backend. Unsupported commands fail with ErrUnsupportedCapability and do
	// not reach the backend.
	Send(cmd Command) error
	// ReceiveEvent applies an external event payload in this backend's own
	// vocabulary. Only valid for controllers advertising receives_events.
	ReceiveEvent(payload []byte) error

	// SubscribeLocal registers an in-process event callback. Used by the audio
	// controller to bind controllers to the event bus, not by clients.
	SubscribeLocal(fn func(Event))

	// SetActive tells the controller whether it is the elected active player.
	// Inactive controllers throttle position events.
	SetActive(active bool)
}
