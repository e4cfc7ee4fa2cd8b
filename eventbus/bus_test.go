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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/interfaces"
)

func event(name string, eventType interfaces.EventType) interfaces.Event {
	return interfaces.Event{
		Type:   eventType,
		Source: interfaces.Source{PlayerName: name, PlayerID: name, Kind: "test"},
	}
}

func receive(t *testing.T, sub *Subscription) interfaces.Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return interfaces.Event{}
	}
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  interfaces.Event
		want   bool
	}{
		{"empty matches all", Filter{}, event("a", interfaces.EventStateChanged), true},
		{"player match", Filter{Players: []string{"a"}}, event("a", interfaces.EventStateChanged), true},
		{"player mismatch", Filter{Players: []string{"b"}}, event("a", interfaces.EventStateChanged), false},
		{"type match", Filter{Types: []interfaces.EventType{interfaces.EventSongChanged}},
			event("a", interfaces.EventSongChanged), true},
		{"type mismatch", Filter{Types: []interfaces.EventType{interfaces.EventSongChanged}},
			event("a", interfaces.EventPositionChanged), false},
		{"active only rejects inactive", Filter{ActiveOnly: true}, event("a", interfaces.EventStateChanged), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.event))
		})
	}

	active := event("a", interfaces.EventStateChanged)
	active.Source.IsActive = true
	assert.True(t, Filter{ActiveOnly: true}.Matches(active))
}

func TestBusDeliversInSourceOrder(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe("test", Filter{})

	for i := 0; i < 20; i++ {
		e := event("a", interfaces.EventPositionChanged)
		e.Position = float64(i)
		bus.Publish(e)
	}
	for i := 0; i < 20; i++ {
		got := receive(t, sub)
		require.Equal(t, float64(i), got.Position, "events reordered")
	}
}

func TestBusFilterChange(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe("test", Filter{Players: []string{"a"}})

	bus.Publish(event("b", interfaces.EventStateChanged))
	bus.Publish(event("a", interfaces.EventStateChanged))
	got := receive(t, sub)
	assert.Equal(t, "a", got.Source.PlayerName)

	sub.SetFilter(Filter{Players: []string{"b"}})
	bus.Publish(event("a", interfaces.EventStateChanged))
	bus.Publish(event("b", interfaces.EventStateChanged))
	got = receive(t, sub)
	assert.Equal(t, "b", got.Source.PlayerName)
}

// slow subscribers lose position events first, state changes survive.
func TestBusOverflowDropsPositionFirst(t *testing.T) {
	bus := NewWithQueueSize(4)
	defer bus.Close()
	sub := bus.Subscribe("slow", Filter{})

	// nothing is read while publishing, so the queue overflows
	bus.Publish(event("a", interfaces.EventStateChanged))
	for i := 0; i < 10; i++ {
		bus.Publish(event("a", interfaces.EventPositionChanged))
	}
	bus.Publish(event("a", interfaces.EventQueueChanged))
	bus.Publish(event("a", interfaces.EventSongChanged))
	bus.Publish(event("a", interfaces.EventSongChanged))

	types := []interfaces.EventType{}
	drain := true
	for drain {
		select {
		case e := <-sub.Events():
			types = append(types, e.Type)
		case <-time.After(200 * time.Millisecond):
			drain = false
		}
	}

	assert.GreaterOrEqual(t, sub.Dropped(), uint64(1))
	count := map[interfaces.EventType]int{}
	for _, tp := range types {
		count[tp]++
	}
	assert.Equal(t, 1, count[interfaces.EventStateChanged], "state change must not be dropped")
	assert.Equal(t, 2, count[interfaces.EventSongChanged], "song changes must outlive position events")
	assert.Less(t, count[interfaces.EventPositionChanged], 10, "position events drop first")
	// per-source order is preserved for the surviving events
	assert.Equal(t, interfaces.EventStateChanged, types[0])
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe("test", Filter{})
	bus.Unsubscribe(sub)

	select {
	case _, open := <-sub.Events():
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed on unsubscribe")
	}
}
