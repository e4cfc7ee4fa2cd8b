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

package eventbus

import (
	"sync"
	"sync/atomic"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
)

// Filter selects which events a subscription receives. Zero value matches
// everything.
type Filter struct {
	// Players restricts to events from the named players. Nil means all
	// players.
	Players []string
	// ActiveOnly restricts to events whose source was the active player at
	// emission time.
	ActiveOnly bool
	// Types restricts to the given event types. Nil means all types.
	Types []interfaces.EventType
}

// Matches tells whether event passes the filter.
func (f Filter) Matches(event interfaces.Event) bool {
	if f.ActiveOnly && !event.Source.IsActive {
		return false
	}
	if f.Players != nil {
		found := false
		for _, name := range f.Players {
			if name == event.Source.PlayerName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Types != nil {
		found := false
		for _, t := range f.Types {
			if t == event.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Subscription is one subscriber's view of the bus. Events are read from
// Events(). The filter is mutable with SetFilter.
type Subscription struct {
	id   string
	name string

	filterLock sync.RWMutex
	filter     Filter

	queueLock sync.Mutex
	queue     []interfaces.Event
	max       int
	dropped   uint64

	notify chan struct{}
	stop   chan struct{}
	out    chan interfaces.Event

	closeOnce sync.Once
}

// ID returns the unique subscription id.
func (s *Subscription) ID() string { return s.id }

// Events returns the delivery channel. It is closed on unsubscribe.
func (s *Subscription) Events() <-chan interfaces.Event { return s.out }

// Dropped returns how many events have been dropped due to queue overflow.
func (s *Subscription) Dropped() uint64 { return atomic.LoadUint64(&s.dropped) }

// Filter returns the current filter.
func (s *Subscription) Filter() Filter {
	s.filterLock.RLock()
	defer s.filterLock.RUnlock()
	return s.filter
}

// SetFilter replaces the filter. Takes effect for events published after the
// call.
func (s *Subscription) SetFilter(filter Filter) {
	s.filterLock.Lock()
	s.filter = filter
	s.filterLock.Unlock()
}

// enqueue appends event, dropping by priority when the queue is full:
// position events go first, then queue events, then the oldest event. State
// changes are never dropped preferentially.
func (s *Subscription) enqueue(event interfaces.Event) {
	s.queueLock.Lock()
	if len(s.queue) >= s.max {
		s.dropOneLocked()
	}
	s.queue = append(s.queue, event)
	s.queueLock.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) dropOneLocked() {
	idx := 0
	found := false
	for i, e := range s.queue {
		if e.Type == interfaces.EventPositionChanged {
			idx = i
			found = true
			break
		}
	}
	if !found {
		for i, e := range s.queue {
			if e.Type == interfaces.EventQueueChanged {
				idx = i
				found = true
				break
			}
		}
	}
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
	atomic.AddUint64(&s.dropped, 1)
	metrics.EventsDropped.WithLabelValues(s.name).Inc()
}

func (s *Subscription) deliver() {
	for {
		s.queueLock.Lock()
		var next *interfaces.Event
		if len(s.queue) > 0 {
			event := s.queue[0]
			s.queue = s.queue[1:]
			next = &event
		}
		s.queueLock.Unlock()

		if next == nil {
			select {
			case <-s.notify:
				continue
			case <-s.stop:
				close(s.out)
				return
			}
		}

		select {
		case s.out <- *next:
		case <-s.stop:
			close(s.out)
			return
		}
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
}
