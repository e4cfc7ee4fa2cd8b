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

// KindShairport tags the room-audio bridge backend.
const KindShairport = "shairport"

// Shairport reflects a shairport-sync airplay receiver. Same transport shape
// as the streaming bridge, pipe or TCP plus the inbound endpoint, with its
// own event vocabulary.
type Shairport struct {
	Base
	pipePath string
	tcpAddr  string
}

// NewShairport creates a room-audio bridge controller. With apiEvents the
// event vocabulary is also accepted through the inbound endpoint; a bridge
// without pipe and address forces it on.
func NewShairport(name, pipePath, tcpAddr string, apiEvents bool) *Shairport {
	id := pipePath
	if id == "" {
		id = tcpAddr
	}
	if id == "" {
		id = name
		apiEvents = true
	}
	caps := interfaces.NewCapabilities()
	if apiEvents {
		caps[interfaces.CapReceivesEvents] = true
	}
	s := &Shairport{
		Base:     newBase(name, id, KindShairport, caps),
		pipePath: pipePath,
		tcpAddr:  tcpAddr,
	}
	s.Task.SetLoop(s.loop)
	return s
}

func (s *Shairport) loop() {
	if s.pipePath == "" && s.tcpAddr == "" {
		<-s.StopChan()
		return
	}

	retry := &backoff{}
	for {
		select {
		case <-s.StopChan():
			return
		default:
		}

		stream, err := openStream(s.pipePath, s.tcpAddr)
		if err != nil {
			s.setState(models.StateDisconnected)
			logrus.Warningf("Shairport %s: %v", s.name, err)
			if !interruptibleSleep(retry.next(), s.StopChan()) {
				return
			}
			continue
		}
		retry.reset()
		s.touch()
		logrus.Infof("Shairport %s: metadata stream connected", s.name)

		done := make(chan struct{})
		go func() {
			select {
			case <-s.StopChan():
				stream.Close()
			case <-done:
			}
		}()

		err = scanObjects(stream, func(payload []byte) {
			if err := s.ReceiveEvent(payload); err != nil {
				logrus.Warningf("Shairport %s: dropping malformed event: %v", s.name, err)
			}
		})
		close(done)
		stream.Close()

		select {
		case <-s.StopChan():
			return
		default:
		}
		logrus.Warningf("Shairport %s: metadata stream closed: %v", s.name, err)
		s.setState(models.StateDisconnected)
		if !interruptibleSleep(retry.next(), s.StopChan()) {
			return
		}
	}
}

// Send implements interfaces.MediaController. Airplay senders are not
// commandable through the metadata pipe.
func (s *Shairport) Send(cmd interfaces.Command) error {
	if err := s.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on shairport bridge %s", err, cmd.Kind, s.name)
	}
	return nil
}

// shairportEvent is the room-audio bridge vocabulary.
type shairportEvent struct {
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Genre    string  `json:"genre"`
	Duration float64 `json:"duration"`
	CoverURL string  `json:"cover_url"`
	Position float64 `json:"position"`
	// Volume is airplay attenuation in dB, -30..0, -144 meaning mute.
	Volume *float64 `json:"volume"`
}

// ReceiveEvent implements interfaces.MediaController.
func (s *Shairport) ReceiveEvent(payload []byte) error {
	event := shairportEvent{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse shairport event: %v", interfaces.ErrInvalidArgument, err)
	}

	switch event.Type {
	case "track":
		song := &models.Song{
			Title:       event.Title,
			Artist:      event.Artist,
			Album:       event.Album,
			Genre:       event.Genre,
			Duration:    event.Duration,
			CoverArtURL: event.CoverURL,
		}
		s.setSong(song)
	case "start":
		s.setState(models.StatePlaying)
	case "stop":
		s.setState(models.StateStopped)
		s.clearPosition()
	case "pause":
		s.setState(models.StatePaused)
	case "seek":
		s.setPosition(event.Position, nil)
	case "volume":
		if event.Volume != nil {
			s.emit(interfaces.Event{Type: interfaces.EventVolumeChanged,
				Volume: airplayVolumeToPercent(*event.Volume), Muted: *event.Volume <= -144})
			s.touch()
		}
	default:
		logrus.Debugf("Shairport %s: ignoring unknown event type '%s'", s.name, event.Type)
	}
	return nil
}

// airplayVolumeToPercent maps the airplay dB range -30..0 to 0..100.
func airplayVolumeToPercent(db float64) int {
	if db <= -144 {
		return 0
	}
	if db < -30 {
		db = -30
	}
	if db > 0 {
		db = 0
	}
	return int((db + 30) / 30 * 100)
}
