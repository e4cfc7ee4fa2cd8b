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
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// KindGeneric tags programmable pseudo-players.
const KindGeneric = "generic"

// Generic is a player with no outbound transport. State lives in memory and
// external reality feeds in through the inbound-event endpoint. Capabilities
// and initial state come from configuration. Commands apply their effect to
// the in-memory state directly, except next and previous, which are accepted
// and leave the state unchanged.
type Generic struct {
	Base
}

// NewGeneric creates a generic player. Receives_events is always on, without
// it the player would be inert.
func NewGeneric(name string, caps interfaces.Capabilities, initialState models.PlayerState) *Generic {
	if caps == nil {
		caps = interfaces.NewCapabilities()
	}
	caps = caps.Copy()
	caps[interfaces.CapReceivesEvents] = true

	g := &Generic{Base: newBase(name, name, KindGeneric, caps)}
	if initialState != "" {
		g.Base.state = initialState
	}
	g.Task.SetLoop(g.loop)
	return g
}

// loop only waits for stop: generic players have no transport to watch.
func (g *Generic) loop() {
	<-g.StopChan()
}

// Send implements interfaces.MediaController.
func (g *Generic) Send(cmd interfaces.Command) error {
	if err := g.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on generic player %s", err, cmd.Kind, g.name)
	}

	switch cmd.Kind {
	case interfaces.CmdPlay:
		g.setState(models.StatePlaying)
	case interfaces.CmdPause:
		if g.State() == models.StatePlaying {
			g.setState(models.StatePaused)
		}
	case interfaces.CmdStop:
		g.setState(models.StateStopped)
	case interfaces.CmdPlayPause:
		if g.State() == models.StatePlaying {
			g.setState(models.StatePaused)
		} else {
			g.setState(models.StatePlaying)
		}
	case interfaces.CmdKill:
		g.setState(models.StateKilled)
	case interfaces.CmdSeek:
		g.setPosition(cmd.Seconds, nil)
	case interfaces.CmdSetLoop:
		g.setLoopMode(cmd.LoopMode)
	case interfaces.CmdSetRandom:
		g.setShuffle(cmd.Random)
	case interfaces.CmdNext, interfaces.CmdPrevious:
		// queue movement is driven by the external script; accepted so the
		// script can observe it through its own channel
	case interfaces.CmdAddTrack:
		queue := g.Queue()
		song := &models.Song{Title: cmd.Track.Title, URI: cmd.Track.URI, CoverArtURL: cmd.Track.CoverArtURL}
		queue = append(queue, models.QueueEntry{Song: song, Position: len(queue)})
		g.setQueue(queue)
	case interfaces.CmdRemoveTrack:
		queue := g.Queue()
		if cmd.Position >= len(queue) {
			return fmt.Errorf("%w: queue position %d out of range", interfaces.ErrInvalidArgument, cmd.Position)
		}
		queue = append(queue[:cmd.Position], queue[cmd.Position+1:]...)
		for i := range queue {
			queue[i].Position = i
		}
		g.setQueue(queue)
	case interfaces.CmdClearQueue:
		g.setQueue([]models.QueueEntry{})
	case interfaces.CmdPlayQueueIndex:
		queue := g.Queue()
		if cmd.QueueIndex >= len(queue) {
			return fmt.Errorf("%w: queue index %d out of range", interfaces.ErrInvalidArgument, cmd.QueueIndex)
		}
		g.setSong(queue[cmd.QueueIndex].Song)
		g.setState(models.StatePlaying)
	}
	return nil
}

// genericEvent is the inbound vocabulary of generic players.
type genericEvent struct {
	Type     string          `json:"type"`
	State    string          `json:"state,omitempty"`
	Song     *models.Song    `json:"song,omitempty"`
	Position float64         `json:"position,omitempty"`
	Shuffle  bool            `json:"shuffle,omitempty"`
	LoopMode string          `json:"loop_mode,omitempty"`
	Queue    []*models.Song  `json:"queue,omitempty"`
}

// ReceiveEvent implements interfaces.MediaController.
func (g *Generic) ReceiveEvent(payload []byte) error {
	event := genericEvent{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse event: %v", interfaces.ErrInvalidArgument, err)
	}

	switch event.Type {
	case "state_changed":
		state := models.ParsePlayerState(event.State)
		if state == models.StateUnknown && event.State != "" {
			return fmt.Errorf("%w: state '%s'", interfaces.ErrInvalidArgument, event.State)
		}
		g.setState(state)
	case "song_changed":
		if event.Song == nil {
			return fmt.Errorf("%w: song_changed without song", interfaces.ErrInvalidArgument)
		}
		g.setSong(event.Song)
	case "position_changed":
		g.setPosition(event.Position, nil)
	case "shuffle_changed":
		g.setShuffle(event.Shuffle)
	case "loop_mode_changed":
		mode, ok := models.ParseLoopMode(event.LoopMode)
		if !ok {
			return fmt.Errorf("%w: loop mode '%s'", interfaces.ErrInvalidArgument, event.LoopMode)
		}
		g.setLoopMode(mode)
	case "queue_changed":
		queue := make([]models.QueueEntry, len(event.Queue))
		for i, song := range event.Queue {
			queue[i] = models.QueueEntry{Song: song, Position: i}
		}
		g.setQueue(queue)
	default:
		logrus.Debugf("Generic player %s: ignoring unknown event type '%s'", g.name, event.Type)
	}
	return nil
}
