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

// Package players implements the backend controllers. Every controller embeds
// Base, which owns the state snapshot and event emission, and adds its own
// transport worker.
package players

import (
	"sync"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/task"
)

// Position event cadence. Active player emits every second for a smooth
// progress bar, inactive players throttle.
const (
	activePositionInterval   = time.Second
	inactivePositionInterval = 5 * time.Second
)

// Base holds the state snapshot and identity shared by all controller kinds.
// Readers take the lock briefly for a copy, they never block on the backend.
// Events are emitted only when an observed value actually changed, except
// position events, which follow every observation.
type Base struct {
	task.Task

	name string
	id   string
	kind string

	lock        sync.RWMutex
	caps        interfaces.Capabilities
	state       models.PlayerState
	song        *models.Song
	position    float64
	hasPosition bool
	loopMode    models.LoopMode
	shuffle     bool
	queue       []models.QueueEntry
	lastSeen    time.Time
	active      bool

	subsLock sync.RWMutex
	subs     []func(interfaces.Event)
}

func newBase(name, id, kind string, caps interfaces.Capabilities) Base {
	b := Base{
		name:     name,
		id:       id,
		kind:     kind,
		caps:     caps,
		state:    models.StateUnknown,
		loopMode: models.LoopNone,
	}
	b.Task.Name = kind + ":" + name
	return b
}

// Name implements interfaces.MediaController.
func (b *Base) Name() string { return b.name }

// ID implements interfaces.MediaController.
func (b *Base) ID() string { return b.id }

// Kind implements interfaces.MediaController.
func (b *Base) Kind() string { return b.kind }

// State implements interfaces.MediaController.
func (b *Base) State() models.PlayerState {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.state
}

// Song implements interfaces.MediaController.
func (b *Base) Song() *models.Song {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.song.Copy()
}

// Capabilities implements interfaces.MediaController.
func (b *Base) Capabilities() interfaces.Capabilities {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.caps.Copy()
}

// LoopMode implements interfaces.MediaController.
func (b *Base) LoopMode() models.LoopMode {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.loopMode
}

// Shuffle implements interfaces.MediaController.
func (b *Base) Shuffle() bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.shuffle
}

// Position implements interfaces.MediaController.
func (b *Base) Position() (float64, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.position, b.hasPosition
}

// Queue implements interfaces.MediaController. Backends without a queue
// return an empty slice.
func (b *Base) Queue() []models.QueueEntry {
	b.lock.RLock()
	defer b.lock.RUnlock()
	out := make([]models.QueueEntry, len(b.queue))
	copy(out, b.queue)
	return out
}

// SubscribeLocal implements interfaces.MediaController.
func (b *Base) SubscribeLocal(fn func(interfaces.Event)) {
	b.subsLock.Lock()
	b.subs = append(b.subs, fn)
	b.subsLock.Unlock()
}

// SetActive implements interfaces.MediaController.
func (b *Base) SetActive(active bool) {
	b.lock.Lock()
	b.active = active
	b.lock.Unlock()
}

// LastSeen returns when the backend last reported anything.
func (b *Base) LastSeen() time.Time {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.lastSeen
}

func (b *Base) isActive() bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.active
}

// positionInterval returns how often this controller should emit position.
func (b *Base) positionInterval() time.Duration {
	if b.isActive() {
		return activePositionInterval
	}
	return inactivePositionInterval
}

// source stamps event origin at emission time.
func (b *Base) source() interfaces.Source {
	return interfaces.Source{
		PlayerID:   b.id,
		PlayerName: b.name,
		Kind:       b.kind,
		IsActive:   b.isActive(),
	}
}

// emit fans event out to local subscribers. Callbacks must not block, the
// audio controller's callback only enqueues to the bus.
func (b *Base) emit(event interfaces.Event) {
	event.Source = b.source()
	b.subsLock.RLock()
	subs := b.subs
	b.subsLock.RUnlock()
	for _, fn := range subs {
		fn(event)
	}
}

// touch records backend liveness.
func (b *Base) touch() {
	b.lock.Lock()
	b.lastSeen = time.Now()
	b.lock.Unlock()
}

// setState updates state and emits StateChanged when it changed.
func (b *Base) setState(state models.PlayerState) {
	b.lock.Lock()
	changed := b.state != state
	b.state = state
	b.lastSeen = time.Now()
	b.lock.Unlock()

	if changed {
		b.emit(interfaces.Event{Type: interfaces.EventStateChanged, State: state})
	}
}

// setSong replaces the current song and emits SongChanged when song identity
// changed. State events never clobber the song, only setSong touches it.
func (b *Base) setSong(song *models.Song) {
	b.lock.Lock()
	changed := !b.song.SameIdentity(song)
	b.song = song
	b.lastSeen = time.Now()
	b.lock.Unlock()

	if changed {
		b.emit(interfaces.Event{Type: interfaces.EventSongChanged, Song: song.Copy()})
	}
}

// updateSong overlays an updated copy of the current song without changing
// identity, e.g. after enrichment or a liked-flag change. No event is emitted.
func (b *Base) updateSong(fn func(song *models.Song)) {
	b.lock.Lock()
	if b.song != nil {
		song := b.song.Copy()
		fn(song)
		b.song = song
	}
	b.lock.Unlock()
}

// setPosition updates position and emits PositionChanged. Position events are
// cadence-driven, every observation is emitted.
func (b *Base) setPosition(position float64, duration *float64) {
	b.lock.Lock()
	b.position = position
	b.hasPosition = true
	b.lastSeen = time.Now()
	b.lock.Unlock()

	b.emit(interfaces.Event{Type: interfaces.EventPositionChanged, Position: position, Duration: duration})
}

// clearPosition marks position as unreported without emitting.
func (b *Base) clearPosition() {
	b.lock.Lock()
	b.position = 0
	b.hasPosition = false
	b.lock.Unlock()
}

// setLoopMode updates loop mode and emits LoopModeChanged when changed.
func (b *Base) setLoopMode(mode models.LoopMode) {
	b.lock.Lock()
	changed := b.loopMode != mode
	b.loopMode = mode
	b.lastSeen = time.Now()
	b.lock.Unlock()

	if changed {
		b.emit(interfaces.Event{Type: interfaces.EventLoopModeChanged, LoopMode: mode})
	}
}

// setShuffle updates shuffle and emits ShuffleChanged when changed.
func (b *Base) setShuffle(shuffle bool) {
	b.lock.Lock()
	changed := b.shuffle != shuffle
	b.shuffle = shuffle
	b.lastSeen = time.Now()
	b.lock.Unlock()

	if changed {
		b.emit(interfaces.Event{Type: interfaces.EventShuffleChanged, Shuffle: shuffle})
	}
}

// setQueue replaces the queue and emits QueueChanged when content changed.
func (b *Base) setQueue(queue []models.QueueEntry) {
	b.lock.Lock()
	changed := len(queue) != len(b.queue)
	if !changed {
		for i := range queue {
			if !queue[i].Song.SameIdentity(b.queue[i].Song) {
				changed = true
				break
			}
		}
	}
	b.queue = queue
	b.lastSeen = time.Now()
	b.lock.Unlock()

	if changed {
		out := make([]models.QueueEntry, len(queue))
		copy(out, queue)
		b.emit(interfaces.Event{Type: interfaces.EventQueueChanged, Queue: out})
	}
}

// setCapabilities replaces the capability set and emits CapabilitiesChanged
// when it changed.
func (b *Base) setCapabilities(caps interfaces.Capabilities) {
	b.lock.Lock()
	changed := len(caps) != len(b.caps)
	if !changed {
		for c := range caps {
			if !b.caps.Has(c) {
				changed = true
				break
			}
		}
	}
	b.caps = caps
	b.lock.Unlock()

	if changed {
		b.emit(interfaces.Event{Type: interfaces.EventCapabilitiesChanged, Capabilities: caps.List()})
	}
}

// requireCapability gates a command on the capability set.
func (b *Base) requireCapability(cmd interfaces.Command) error {
	required := cmd.RequiredCapability()
	b.lock.RLock()
	ok := b.caps.Has(required)
	b.lock.RUnlock()
	if !ok {
		return interfaces.ErrUnsupportedCapability
	}
	return nil
}
