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

// KindLibrespot tags the streaming-bridge backend.
const KindLibrespot = "librespot"

// Librespot reflects an external librespot process. The process notifies over
// a named pipe or TCP stream emitting brace-framed JSON events; the same
// schema is accepted through the inbound-event endpoint so a notifier binary
// can forward events when no pipe is available. There is no outbound
// transport, the bridge cannot be commanded from here.
type Librespot struct {
	Base
	pipePath string
	tcpAddr  string
}

// NewLibrespot creates a streaming-bridge controller reading from pipePath or
// tcpAddr. With apiEvents the same schema is accepted through the inbound
// endpoint; a bridge with neither pipe nor address forces it on, it would be
// inert otherwise.
func NewLibrespot(name, pipePath, tcpAddr string, apiEvents bool) *Librespot {
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
	l := &Librespot{
		Base:     newBase(name, id, KindLibrespot, caps),
		pipePath: pipePath,
		tcpAddr:  tcpAddr,
	}
	l.Task.SetLoop(l.loop)
	return l
}

func (l *Librespot) loop() {
	if l.pipePath == "" && l.tcpAddr == "" {
		// inbound-endpoint only
		<-l.StopChan()
		return
	}

	retry := &backoff{}
	for {
		select {
		case <-l.StopChan():
			return
		default:
		}

		stream, err := openStream(l.pipePath, l.tcpAddr)
		if err != nil {
			l.setState(models.StateDisconnected)
			logrus.Warningf("Librespot %s: %v", l.name, err)
			if !interruptibleSleep(retry.next(), l.StopChan()) {
				return
			}
			continue
		}
		retry.reset()
		l.touch()
		logrus.Infof("Librespot %s: event stream connected", l.name)

		// close the stream when stop fires so the blocking read returns
		done := make(chan struct{})
		go func() {
			select {
			case <-l.StopChan():
				stream.Close()
			case <-done:
			}
		}()

		err = scanObjects(stream, func(payload []byte) {
			if err := l.ReceiveEvent(payload); err != nil {
				logrus.Warningf("Librespot %s: dropping malformed event: %v", l.name, err)
			}
		})
		close(done)
		stream.Close()

		select {
		case <-l.StopChan():
			return
		default:
		}
		logrus.Warningf("Librespot %s: event stream closed: %v", l.name, err)
		l.setState(models.StateDisconnected)
		if !interruptibleSleep(retry.next(), l.StopChan()) {
			return
		}
	}
}

// Send implements interfaces.MediaController. The bridge advertises no
// command capabilities, every command is unsupported.
func (l *Librespot) Send(cmd interfaces.Command) error {
	if err := l.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on librespot bridge %s", err, cmd.Kind, l.name)
	}
	return nil
}

// librespotEvent is the bridge's native vocabulary. Field names are uppercase
// on the wire.
type librespotEvent struct {
	Type        string   `json:"type"`
	Name        string   `json:"NAME"`
	Artists     string   `json:"ARTISTS"`
	Album       string   `json:"ALBUM"`
	DurationMS  float64  `json:"DURATION_MS"`
	PositionMS  float64  `json:"POSITION_MS"`
	TrackID     string   `json:"TRACK_ID"`
	URI         string   `json:"URI"`
	Volume      *int     `json:"VOLUME"`
	Shuffle     *bool    `json:"SHUFFLE"`
	Repeat      *bool    `json:"REPEAT"`
	RepeatTrack *bool    `json:"REPEAT_TRACK"`
	IsExplicit  *bool    `json:"IS_EXPLICIT"`
	Popularity  *int     `json:"POPULARITY"`
	Covers      []string `json:"COVERS"`
}

// ReceiveEvent implements interfaces.MediaController. State events preserve
// the current song: only track_changed replaces it.
func (l *Librespot) ReceiveEvent(payload []byte) error {
	event := librespotEvent{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: parse librespot event: %v", interfaces.ErrInvalidArgument, err)
	}

	switch event.Type {
	case "track_changed":
		song := &models.Song{
			Title:    event.Name,
			Artist:   event.Artists,
			Album:    event.Album,
			Duration: event.DurationMS / 1000,
			URI:      event.URI,
		}
		if len(event.Covers) > 0 {
			song.CoverArtURL = event.Covers[0]
		}
		meta := map[string]interface{}{}
		if event.TrackID != "" {
			meta["track_id"] = event.TrackID
		}
		if event.IsExplicit != nil {
			meta["is_explicit"] = *event.IsExplicit
		}
		if event.Popularity != nil {
			meta["popularity"] = *event.Popularity
		}
		if len(meta) > 0 {
			song.Metadata = meta
		}
		l.setSong(song)

	case "playing":
		l.setState(models.StatePlaying)
		l.setPosition(event.PositionMS/1000, nil)
	case "paused":
		l.setState(models.StatePaused)
		l.setPosition(event.PositionMS/1000, nil)
	case "stopped":
		l.setState(models.StateStopped)
		l.clearPosition()
	case "seeked":
		l.setPosition(event.PositionMS/1000, nil)

	case "volume_changed":
		if event.Volume != nil {
			// librespot volume is 0..65535
			percent := *event.Volume * 100 / 65535
			l.emit(interfaces.Event{Type: interfaces.EventVolumeChanged, Volume: percent})
			l.touch()
		}
	case "shuffle_changed":
		if event.Shuffle != nil {
			l.setShuffle(*event.Shuffle)
		}
	case "repeat_changed":
		mode := models.LoopNone
		if event.RepeatTrack != nil && *event.RepeatTrack {
			mode = models.LoopTrack
		} else if event.Repeat != nil && *event.Repeat {
			mode = models.LoopPlaylist
		}
		l.setLoopMode(mode)

	case "loading", "play_request_id_changed", "preloading":
		// recognised, intentionally ignored
	default:
		logrus.Debugf("Librespot %s: ignoring unknown event type '%s'", l.name, event.Type)
	}
	return nil
}
