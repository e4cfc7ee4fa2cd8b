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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// KindLMS tags the remote media server backend.
const KindLMS = "lms"

// LMS controls a player attached to a Logitech Media Server through its
// JSON-RPC endpoint. Requests are stateless; change detection is polling of
// the status digest. The playlist timestamp is kept as revision counter; the
// queue and current song are rebuilt when it moves and on every digest that
// carries tracks, and events follow only from observed changes.
type LMS struct {
	Base
	url      string
	playerID string
	client   *http.Client

	lastPlaylistRev float64
}

// NewLMS creates a controller for player playerID on server host:port.
func NewLMS(name, host string, port int, playerID string) *LMS {
	caps := interfaces.NewCapabilities(
		interfaces.CapPlay, interfaces.CapPause, interfaces.CapStop, interfaces.CapPlayPause,
		interfaces.CapNext, interfaces.CapPrevious, interfaces.CapSeek,
		interfaces.CapSetLoop, interfaces.CapSetRandom, interfaces.CapQueue)
	l := &LMS{
		Base:     newBase(name, fmt.Sprintf("%s:%d/%s", host, port, playerID), KindLMS, caps),
		url:      fmt.Sprintf("http://%s:%d/jsonrpc.js", host, port),
		playerID: playerID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	l.Task.SetLoop(l.loop)
	return l
}

func (l *LMS) loop() {
	ticker := newPositionTicker(&l.Base)
	defer ticker.stop()
	retry := &backoff{}

	// initial snapshot without waiting for the first tick
	l.poll(retry)
	for {
		select {
		case <-l.StopChan():
			return
		case <-ticker.C():
			l.poll(retry)
		}
	}
}

func (l *LMS) poll(retry *backoff) {
	status, err := l.status()
	if err != nil {
		if l.State() != models.StateDisconnected {
			logrus.Warningf("LMS %s: %v", l.name, err)
			l.setState(models.StateDisconnected)
		}
		// stateless transport: next tick retries, the warning is logged once
		// per outage
		retry.next()
		return
	}
	retry.reset()
	l.apply(status)
}

// lmsStatus is the digest subset the controller consumes.
type lmsStatus struct {
	Mode              string     `json:"mode"`
	Time              float64    `json:"time"`
	Duration          float64    `json:"duration"`
	PlaylistTimestamp float64    `json:"playlist_timestamp"`
	PlaylistRepeat    int        `json:"playlist repeat"`
	PlaylistShuffle   int        `json:"playlist shuffle"`
	PlaylistCurIndex  jsonInt    `json:"playlist_cur_index"`
	PlaylistLoop      []lmsTrack `json:"playlist_loop"`
}

type lmsTrack struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Genre      string  `json:"genre"`
	Duration   float64 `json:"duration"`
	URL        string  `json:"url"`
	ArtworkURL string  `json:"artwork_url"`
	Year       jsonInt `json:"year"`
	TrackNum   jsonInt `json:"tracknum"`
}

// jsonInt tolerates the server sending numbers as strings.
type jsonInt int

func (i *jsonInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*i = jsonInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err != nil {
		*i = 0
		return nil
	}
	*i = jsonInt(f)
	return nil
}

func (l *LMS) status() (*lmsStatus, error) {
	result, err := l.request([]interface{}{"status", "-", "50", "tags:aldyJK"})
	if err != nil {
		return nil, err
	}
	status := &lmsStatus{}
	if err := json.Unmarshal(result, status); err != nil {
		return nil, fmt.Errorf("%w: parse lms status: %v", interfaces.ErrBackend, err)
	}
	return status, nil
}

func (l *LMS) apply(status *lmsStatus) {
	switch status.Mode {
	case "play":
		l.setState(models.StatePlaying)
	case "pause":
		l.setState(models.StatePaused)
	case "stop":
		l.setState(models.StateStopped)
	default:
		l.setState(models.StateUnknown)
	}

	switch status.PlaylistRepeat {
	case 1:
		l.setLoopMode(models.LoopTrack)
	case 2:
		l.setLoopMode(models.LoopPlaylist)
	default:
		l.setLoopMode(models.LoopNone)
	}
	l.setShuffle(status.PlaylistShuffle != 0)

	if status.PlaylistTimestamp != l.lastPlaylistRev || len(status.PlaylistLoop) > 0 {
		l.lastPlaylistRev = status.PlaylistTimestamp
		queue := make([]models.QueueEntry, 0, len(status.PlaylistLoop))
		for i, track := range status.PlaylistLoop {
			queue = append(queue, models.QueueEntry{Song: lmsSong(track), Position: i})
		}
		l.setQueue(queue)

		idx := int(status.PlaylistCurIndex)
		if idx >= 0 && idx < len(queue) {
			song := queue[idx].Song.Copy()
			if song.Duration == 0 {
				song.Duration = status.Duration
			}
			l.setSong(song)
		} else if len(queue) == 0 {
			l.setSong(nil)
		}
	}

	if status.Mode == "play" || status.Mode == "pause" {
		duration := status.Duration
		l.setPosition(status.Time, &duration)
	}
}

func lmsSong(track lmsTrack) *models.Song {
	return &models.Song{
		Title:       track.Title,
		Artist:      track.Artist,
		Album:       track.Album,
		Genre:       track.Genre,
		Duration:    track.Duration,
		URI:         track.URL,
		CoverArtURL: track.ArtworkURL,
		Year:        int(track.Year),
		Track:       int(track.TrackNum),
	}
}

// request posts one slim.request call and returns the raw result object.
func (l *LMS) request(params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]interface{}{
		"id":     1,
		"method": "slim.request",
		"params": []interface{}{l.playerID, params},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal lms request: %w", err)
	}

	resp, err := l.client.Post(l.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: lms request: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: lms returned status %d", interfaces.ErrBackend, resp.StatusCode)
	}

	envelope := struct {
		Result json.RawMessage `json:"result"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: parse lms response: %v", interfaces.ErrBackend, err)
	}
	return envelope.Result, nil
}

// Send implements interfaces.MediaController.
func (l *LMS) Send(cmd interfaces.Command) error {
	if err := l.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on lms player %s", err, cmd.Kind, l.name)
	}

	var params []interface{}
	switch cmd.Kind {
	case interfaces.CmdPlay:
		params = []interface{}{"play"}
	case interfaces.CmdPause:
		params = []interface{}{"pause", "1"}
	case interfaces.CmdStop:
		params = []interface{}{"stop"}
	case interfaces.CmdPlayPause:
		params = []interface{}{"pause"}
	case interfaces.CmdNext:
		params = []interface{}{"playlist", "index", "+1"}
	case interfaces.CmdPrevious:
		params = []interface{}{"playlist", "index", "-1"}
	case interfaces.CmdSeek:
		params = []interface{}{"time", fmt.Sprintf("%.0f", cmd.Seconds)}
	case interfaces.CmdSetLoop:
		repeat := 0
		switch cmd.LoopMode {
		case models.LoopTrack:
			repeat = 1
		case models.LoopPlaylist:
			repeat = 2
		}
		params = []interface{}{"playlist", "repeat", repeat}
	case interfaces.CmdSetRandom:
		shuffle := 0
		if cmd.Random {
			shuffle = 1
		}
		params = []interface{}{"playlist", "shuffle", shuffle}
	case interfaces.CmdAddTrack:
		params = []interface{}{"playlist", "add", cmd.Track.URI}
	case interfaces.CmdRemoveTrack:
		params = []interface{}{"playlist", "delete", cmd.Position}
	case interfaces.CmdClearQueue:
		params = []interface{}{"playlist", "clear"}
	case interfaces.CmdPlayQueueIndex:
		params = []interface{}{"playlist", "index", cmd.QueueIndex}
	default:
		return fmt.Errorf("%w: command %s", interfaces.ErrInvalidArgument, cmd.Kind)
	}

	if _, err := l.request(params); err != nil {
		if !errIsBackend(err) {
			l.setState(models.StateDisconnected)
		}
		return fmt.Errorf("lms %s command %s: %w", l.name, cmd.Kind, err)
	}
	return nil
}

// ReceiveEvent implements interfaces.MediaController. Server state is polled,
// inbound api events are not supported.
func (l *LMS) ReceiveEvent([]byte) error {
	return fmt.Errorf("%w: lms player %s does not receive events", interfaces.ErrUnsupportedCapability, l.name)
}
