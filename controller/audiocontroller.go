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

// Package controller owns the controller registry and the active-player
// arbitration. The registry is fixed after Start, reads take no lock.
package controller

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/task"
)

// ActiveName resolves to the currently elected controller at dispatch time.
// It is a name resolver, not a controller: resolution is never cached.
const ActiveName = "active"

// transition records a controller's last observed state changes for election.
type transition struct {
	state models.PlayerState
	// last is when the state last changed, in any direction
	last time.Time
	// playingSince is when the state last entered Playing
	playingSince time.Time
}

// AudioController owns the name -> controller mapping, binds controllers to
// the event bus and elects the active player on every state transition.
type AudioController struct {
	bus interfaces.EventPublisher

	// read-only after Start
	controllers map[string]interfaces.MediaController
	order       []string
	ids         map[string]bool
	started     bool

	lock        sync.Mutex
	activeName  string
	transitions map[string]*transition
}

// New creates an audio controller publishing to bus.
func New(bus interfaces.EventPublisher) *AudioController {
	return &AudioController{
		bus:         bus,
		controllers: map[string]interfaces.MediaController{},
		ids:         map[string]bool{},
		transitions: map[string]*transition{},
	}
}

// Register adds a controller. Only valid before Start. Names are unique per
// process, (kind, id) unique across controllers.
func (a *AudioController) Register(c interfaces.MediaController) error {
	if a.started {
		return fmt.Errorf("controller set is fixed after start")
	}
	name := c.Name()
	if name == ActiveName {
		return fmt.Errorf("%w: player name '%s' is reserved", interfaces.ErrInvalidArgument, ActiveName)
	}
	if _, ok := a.controllers[name]; ok {
		return fmt.Errorf("%w: duplicate player name '%s'", interfaces.ErrInvalidArgument, name)
	}
	kindID := c.Kind() + "/" + c.ID()
	if a.ids[kindID] {
		return fmt.Errorf("%w: duplicate player backend '%s'", interfaces.ErrInvalidArgument, kindID)
	}
	a.controllers[name] = c
	a.order = append(a.order, name)
	a.ids[kindID] = true
	a.transitions[name] = &transition{state: c.State()}
	return nil
}

// Start binds every controller to the bus and starts its transport worker.
func (a *AudioController) Start() error {
	a.started = true
	for _, name := range a.order {
		c := a.controllers[name]
		controller := c
		c.SubscribeLocal(func(event interfaces.Event) {
			a.onEvent(controller, event)
		})
		if tasker, ok := c.(task.Tasker); ok {
			if err := tasker.Start(); err != nil {
				return fmt.Errorf("start player %s: %w", name, err)
			}
		}
		logrus.Infof("Player '%s' (%s) registered", name, c.Kind())
	}
	return nil
}

// Stop stops all controller workers.
func (a *AudioController) Stop() {
	for _, name := range a.order {
		if tasker, ok := a.controllers[name].(task.Tasker); ok {
			if err := tasker.Stop(); err != nil {
				logrus.Debugf("stop player %s: %v", name, err)
			}
		}
	}
}

// Controllers enumerates registered controllers in registration order.
func (a *AudioController) Controllers() []interfaces.MediaController {
	out := make([]interfaces.MediaController, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.controllers[name])
	}
	return out
}

// Get looks up a controller by name. The special name 'active' resolves to
// the elected controller at this moment.
func (a *AudioController) Get(name string) (interfaces.MediaController, error) {
	if name == ActiveName {
		c := a.Active()
		if c == nil {
			return nil, fmt.Errorf("%w: no active player", interfaces.ErrNotFound)
		}
		return c, nil
	}
	c, ok := a.controllers[name]
	if !ok {
		return nil, fmt.Errorf("%w: player '%s'", interfaces.ErrNotFound, name)
	}
	return c, nil
}

// Active returns the elected controller. Before any election the first
// registered controller stands in, nil when none exist.
func (a *AudioController) Active() interfaces.MediaController {
	a.lock.Lock()
	name := a.activeName
	a.lock.Unlock()

	if name != "" {
		return a.controllers[name]
	}
	if len(a.order) > 0 {
		return a.controllers[a.order[0]]
	}
	return nil
}

// Send dispatches cmd to the named controller, resolving 'active' at
// dispatch.
func (a *AudioController) Send(name string, cmd interfaces.Command) error {
	c, err := a.Get(name)
	if err != nil {
		return err
	}
	err = c.Send(cmd)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CommandsDispatched.WithLabelValues(c.Name(), string(cmd.Kind), result).Inc()
	return err
}

// ReceiveEvent forwards an inbound event payload to the named controller.
// The controller must advertise receives_events.
func (a *AudioController) ReceiveEvent(name string, payload []byte) error {
	c, err := a.Get(name)
	if err != nil {
		return err
	}
	if !c.Capabilities().Has(interfaces.CapReceivesEvents) {
		return fmt.Errorf("%w: player '%s' does not receive events", interfaces.ErrUnsupportedCapability, c.Name())
	}
	return c.ReceiveEvent(payload)
}

// onEvent is every controller's local subscription: it re-elects on state
// transitions, stamps the is_active flag with the arbitration result and
// publishes to the bus. Controllers never call back into the audio controller
// synchronously, election only reads registry handles.
func (a *AudioController) onEvent(c interfaces.MediaController, event interfaces.Event) {
	if event.Type == interfaces.EventStateChanged {
		a.recordTransition(c.Name(), event.State)
	}

	a.lock.Lock()
	previous := a.activeName
	elected := a.electLocked()
	changed := elected != previous && elected != ""
	if changed {
		a.activeName = elected
	}
	active := a.activeName
	a.lock.Unlock()

	if changed {
		a.activeChanged(previous, elected)
	}

	event.Source.IsActive = event.Source.PlayerName == active ||
		(active == "" && len(a.order) > 0 && event.Source.PlayerName == a.order[0])
	a.bus.Publish(event)
}

func (a *AudioController) recordTransition(name string, state models.PlayerState) {
	now := time.Now()
	a.lock.Lock()
	tr := a.transitions[name]
	if tr == nil {
		tr = &transition{}
		a.transitions[name] = tr
	}
	if tr.state != state {
		tr.last = now
		if state == models.StatePlaying {
			tr.playingSince = now
		}
		tr.state = state
	}
	a.lock.Unlock()
}

// electLocked is a pure function of the recorded (state, timestamp) tuples:
// the most recently transitioned playing controller wins, ties break by the
// most recent entry into Playing. With nothing playing the current active
// retains the election, so a paused player the user just touched stays 'the'
// player.
func (a *AudioController) electLocked() string {
	winner := ""
	var winnerTr *transition
	for name, tr := range a.transitions {
		if tr.state != models.StatePlaying {
			continue
		}
		if winnerTr == nil ||
			tr.last.After(winnerTr.last) ||
			(tr.last.Equal(winnerTr.last) && tr.playingSince.After(winnerTr.playingSince)) {
			winner = name
			winnerTr = tr
		}
	}
	if winner == "" {
		return a.activeName
	}
	return winner
}

// activeChanged notifies both controllers and synthesises a consistent
// snapshot for subscribers of the 'active' pseudo-player.
func (a *AudioController) activeChanged(previous, elected string) {
	if prev, ok := a.controllers[previous]; ok {
		prev.SetActive(false)
	}
	c, ok := a.controllers[elected]
	if !ok {
		return
	}
	c.SetActive(true)
	logrus.Infof("Active player: %s", elected)

	source := interfaces.Source{
		PlayerID:   c.ID(),
		PlayerName: c.Name(),
		Kind:       c.Kind(),
		IsActive:   true,
	}
	a.bus.Publish(interfaces.Event{
		Type:         interfaces.EventCapabilitiesChanged,
		Source:       source,
		Capabilities: c.Capabilities().List(),
	})
	a.bus.Publish(interfaces.Event{
		Type:   interfaces.EventStateChanged,
		Source: source,
		State:  c.State(),
	})
}
