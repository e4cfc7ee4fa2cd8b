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

package controller

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// fakePlayer is a minimal in-test controller.
type fakePlayer struct {
	name   string
	id     string
	kind   string
	caps   interfaces.Capabilities
	state  models.PlayerState
	song   *models.Song
	active bool
	sent   []interfaces.Command
	subs   []func(interfaces.Event)
	lock   sync.Mutex
}

func newFakePlayer(name string) *fakePlayer {
	return &fakePlayer{
		name:  name,
		id:    name + "-id",
		kind:  "fake",
		caps:  interfaces.NewCapabilities(interfaces.CapPlay, interfaces.CapReceivesEvents),
		state: models.StateStopped,
	}
}

func (f *fakePlayer) Name() string                            { return f.name }
func (f *fakePlayer) ID() string                              { return f.id }
func (f *fakePlayer) Kind() string                            { return f.kind }
func (f *fakePlayer) State() models.PlayerState               { return f.state }
func (f *fakePlayer) Song() *models.Song                      { return f.song }
func (f *fakePlayer) Capabilities() interfaces.Capabilities   { return f.caps }
func (f *fakePlayer) LoopMode() models.LoopMode               { return models.LoopNone }
func (f *fakePlayer) Shuffle() bool                           { return false }
func (f *fakePlayer) Position() (float64, bool)               { return 0, false }
func (f *fakePlayer) Queue() []models.QueueEntry              { return []models.QueueEntry{} }
func (f *fakePlayer) ReceiveEvent([]byte) error               { return nil }
func (f *fakePlayer) SubscribeLocal(fn func(interfaces.Event)) { f.subs = append(f.subs, fn) }
func (f *fakePlayer) SetActive(active bool) {
	f.lock.Lock()
	f.active = active
	f.lock.Unlock()
}

func (f *fakePlayer) Send(cmd interfaces.Command) error {
	if !f.caps.Has(cmd.RequiredCapability()) {
		return interfaces.ErrUnsupportedCapability
	}
	f.sent = append(f.sent, cmd)
	return nil
}

// setState simulates an observed backend transition.
func (f *fakePlayer) setState(state models.PlayerState) {
	f.state = state
	for _, fn := range f.subs {
		fn(interfaces.Event{
			Type:   interfaces.EventStateChanged,
			State:  state,
			Source: interfaces.Source{PlayerName: f.name, PlayerID: f.id, Kind: f.kind},
		})
	}
}

// recordingBus captures published events.
type recordingBus struct {
	lock   sync.Mutex
	events []interfaces.Event
}

func (r *recordingBus) Publish(event interfaces.Event) {
	r.lock.Lock()
	r.events = append(r.events, event)
	r.lock.Unlock()
}

func (r *recordingBus) byType(t interfaces.EventType) []interfaces.Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := []interfaces.Event{}
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func setup(t *testing.T, names ...string) (*AudioController, *recordingBus, map[string]*fakePlayer) {
	t.Helper()
	bus := &recordingBus{}
	audio := New(bus)
	fakes := map[string]*fakePlayer{}
	for _, name := range names {
		fake := newFakePlayer(name)
		fakes[name] = fake
		require.NoError(t, audio.Register(fake))
	}
	require.NoError(t, audio.Start())
	return audio, bus, fakes
}

func TestRegisterUniqueness(t *testing.T) {
	audio := New(&recordingBus{})
	require.NoError(t, audio.Register(newFakePlayer("a")))

	assert.Error(t, audio.Register(newFakePlayer("a")), "duplicate name must fail")

	clone := newFakePlayer("b")
	clone.id = "a-id"
	assert.Error(t, audio.Register(clone), "duplicate (kind, id) must fail")

	reserved := newFakePlayer(ActiveName)
	assert.Error(t, audio.Register(reserved))
}

func TestActiveElection(t *testing.T) {
	// arbitration contract: most recent transition to playing wins, a
	// paused controller retains the election while nothing plays
	ac, bus, players := setup(t, "a", "b")
	a, b := players["a"], players["b"]

	a.setState(models.StatePlaying)
	assert.Equal(t, "a", ac.Active().Name())

	b.setState(models.StatePlaying)
	assert.Equal(t, "b", ac.Active().Name())
	assert.True(t, b.active)
	assert.False(t, a.active)

	// paused most recently, but a is still playing
	b.setState(models.StatePaused)
	assert.Equal(t, "a", ac.Active().Name())

	// nothing playing: most recently active controller retains activeness
	a.setState(models.StatePaused)
	assert.Equal(t, "a", ac.Active().Name())

	// election change synthesised capabilities + state for 'active' subscribers
	synthesised := bus.byType(interfaces.EventCapabilitiesChanged)
	assert.NotEmpty(t, synthesised)
}

func TestEventsCarryIsActive(t *testing.T) {
	ac, bus, players := setup(t, "gp")
	players["gp"].setState(models.StatePlaying)

	events := bus.byType(interfaces.EventStateChanged)
	require.NotEmpty(t, events)
	assert.True(t, events[0].Source.IsActive)
	assert.Equal(t, "gp", ac.Active().Name())
}

func TestGetActiveResolvesAtDispatch(t *testing.T) {
	ac, _, players := setup(t, "a", "b")

	players["a"].setState(models.StatePlaying)
	c, err := ac.Get(ActiveName)
	require.NoError(t, err)
	assert.Equal(t, "a", c.Name())

	players["b"].setState(models.StatePlaying)
	c, err = ac.Get(ActiveName)
	require.NoError(t, err)
	assert.Equal(t, "b", c.Name())

	_, err = ac.Get("missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSendToNamedAndActive(t *testing.T) {
	ac, _, players := setup(t, "a", "b")
	players["b"].setState(models.StatePlaying)

	require.NoError(t, ac.Send(ActiveName, interfaces.Command{Kind: interfaces.CmdPlay}))
	assert.Len(t, players["b"].sent, 1)
	assert.Empty(t, players["a"].sent)

	err := ac.Send("a", interfaces.Command{Kind: interfaces.CmdSeek, Seconds: 3})
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedCapability)
}

func TestReceiveEventRequiresCapability(t *testing.T) {
	ac, _, players := setup(t, "a")
	require.NoError(t, ac.ReceiveEvent("a", []byte(`{}`)))

	delete(players["a"].caps, interfaces.CapReceivesEvents)
	err := ac.ReceiveEvent("a", []byte(`{}`))
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedCapability)
}
