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
	"fmt"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// KindMPD tags the local music daemon backend.
const KindMPD = "mpd"

// MPD controls a music player daemon over its TCP text protocol. The worker
// keeps a long-lived connection blocked in 'idle' and re-reads the snapshot
// on wakeup; commands use a second connection so they never race the idle
// wait. Connection loss turns state Disconnected and retries with exponential
// backoff.
type MPD struct {
	Base
	addr string

	cmdLock sync.Mutex
	cmdConn *mpdConn

	// updating tracks the database-update job between refreshes
	updating bool
}

// NewMPD creates an mpd controller for host:port.
func NewMPD(name, host string, port int) *MPD {
	addr := fmt.Sprintf("%s:%d", host, port)
	caps := interfaces.NewCapabilities(
		interfaces.CapPlay, interfaces.CapPause, interfaces.CapStop, interfaces.CapPlayPause,
		interfaces.CapNext, interfaces.CapPrevious, interfaces.CapSeek,
		interfaces.CapSetLoop, interfaces.CapSetRandom, interfaces.CapQueue, interfaces.CapKill)
	m := &MPD{
		Base: newBase(name, addr, KindMPD, caps),
		addr: addr,
	}
	m.Task.SetLoop(m.loop)
	return m
}

func (m *MPD) loop() {
	retry := &backoff{}
	for {
		select {
		case <-m.StopChan():
			m.closeCmdConn()
			return
		default:
		}

		idle, err := dialMPD(m.addr)
		if err != nil {
			m.setState(models.StateDisconnected)
			logrus.Warningf("MPD %s: %v", m.name, err)
			if !interruptibleSleep(retry.next(), m.StopChan()) {
				return
			}
			continue
		}
		retry.reset()
		logrus.Infof("MPD %s: connected to %s", m.name, m.addr)
		// full snapshot after (re)connect, diffs are emitted from it
		m.refresh()

		m.watch(idle)
		idle.close()
		m.closeCmdConn()

		select {
		case <-m.StopChan():
			return
		default:
		}
		m.setState(models.StateDisconnected)
		if !interruptibleSleep(retry.next(), m.StopChan()) {
			return
		}
	}
}

// watch blocks the idle connection on change notifications and polls position
// while playing. Returns when the connection breaks or stop fires.
func (m *MPD) watch(idle *mpdConn) {
	type idleResult struct {
		subsystems []string
		err        error
	}
	results := make(chan idleResult, 1)
	stopIdle := make(chan struct{})
	go func() {
		for {
			lines, err := idle.command("idle player playlist options update mixer")
			select {
			case <-stopIdle:
				return
			case results <- idleResult{subsystems: lines, err: err}:
			}
			if err != nil {
				return
			}
		}
	}()
	defer close(stopIdle)

	ticker := newPositionTicker(&m.Base)
	defer ticker.stop()

	for {
		select {
		case <-m.StopChan():
			idle.close()
			return
		case result := <-results:
			if result.err != nil {
				logrus.Warningf("MPD %s: idle connection lost: %v", m.name, result.err)
				return
			}
			m.refresh()
		case <-ticker.C():
			if m.State() == models.StatePlaying {
				m.pollPosition()
			}
		}
	}
}

// refresh re-reads the full backend snapshot and emits diffs.
func (m *MPD) refresh() {
	status, err := m.command("status")
	if err != nil {
		logrus.Warningf("MPD %s: read status: %v", m.name, err)
		return
	}
	pairs := parsePairs(status)

	currentLines, err := m.command("currentsong")
	if err != nil {
		logrus.Warningf("MPD %s: read current song: %v", m.name, err)
		return
	}
	m.setSong(songFromPairs(parsePairs(currentLines)))

	switch pairs["state"] {
	case "play":
		m.setState(models.StatePlaying)
	case "pause":
		m.setState(models.StatePaused)
	case "stop":
		m.setState(models.StateStopped)
	default:
		m.setState(models.StateUnknown)
	}

	single := pairs["single"] == "1"
	repeat := pairs["repeat"] == "1"
	switch {
	case single:
		m.setLoopMode(models.LoopTrack)
	case repeat:
		m.setLoopMode(models.LoopPlaylist)
	default:
		m.setLoopMode(models.LoopNone)
	}
	m.setShuffle(pairs["random"] == "1")

	if elapsed, err := strconv.ParseFloat(pairs["elapsed"], 64); err == nil {
		duration := durationPtr(pairs["duration"])
		m.setPosition(elapsed, duration)
	}

	_, updating := pairs["updating_db"]
	if updating != m.updating {
		m.updating = updating
		percent := 100.0
		if updating {
			percent = 0.0
		}
		m.emit(interfaces.Event{Type: interfaces.EventDatabaseUpdating, Percent: percent})
	}

	queueLines, err := m.command("playlistinfo")
	if err != nil {
		logrus.Warningf("MPD %s: read playlist: %v", m.name, err)
		return
	}
	songs := parseSongList(queueLines)
	queue := make([]models.QueueEntry, 0, len(songs))
	for i, song := range songs {
		if song == nil {
			continue
		}
		queue = append(queue, models.QueueEntry{Song: song, Position: i})
	}
	m.setQueue(queue)
}

func (m *MPD) pollPosition() {
	status, err := m.command("status")
	if err != nil {
		return
	}
	pairs := parsePairs(status)
	if elapsed, err := strconv.ParseFloat(pairs["elapsed"], 64); err == nil {
		m.setPosition(elapsed, durationPtr(pairs["duration"]))
	}
}

func durationPtr(v string) *float64 {
	if d, err := strconv.ParseFloat(v, 64); err == nil {
		return &d
	}
	return nil
}

// command runs cmd on the command connection, reconnecting once on a broken
// connection.
func (m *MPD) command(cmd string) ([]string, error) {
	m.cmdLock.Lock()
	defer m.cmdLock.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if m.cmdConn == nil {
			conn, err := dialMPD(m.addr)
			if err != nil {
				return nil, err
			}
			m.cmdConn = conn
		}
		lines, err := m.cmdConn.command(cmd)
		if err == nil {
			return lines, nil
		}
		if errIsBackend(err) {
			return nil, err
		}
		m.cmdConn.close()
		m.cmdConn = nil
	}
	return nil, fmt.Errorf("%w: mpd %s unreachable", interfaces.ErrTransport, m.addr)
}

func (m *MPD) closeCmdConn() {
	m.cmdLock.Lock()
	if m.cmdConn != nil {
		m.cmdConn.close()
		m.cmdConn = nil
	}
	m.cmdLock.Unlock()
}

// Send implements interfaces.MediaController.
func (m *MPD) Send(cmd interfaces.Command) error {
	if err := m.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on mpd player %s", err, cmd.Kind, m.name)
	}

	wire := ""
	switch cmd.Kind {
	case interfaces.CmdPlay:
		wire = "play"
	case interfaces.CmdPause:
		wire = "pause 1"
	case interfaces.CmdStop:
		wire = "stop"
	case interfaces.CmdPlayPause:
		if m.State() == models.StatePlaying {
			wire = "pause 1"
		} else {
			wire = "play"
		}
	case interfaces.CmdNext:
		wire = "next"
	case interfaces.CmdPrevious:
		wire = "previous"
	case interfaces.CmdKill:
		wire = "kill"
	case interfaces.CmdSeek:
		wire = fmt.Sprintf("seekcur %.3f", cmd.Seconds)
	case interfaces.CmdSetRandom:
		wire = "random " + boolToWire(cmd.Random)
	case interfaces.CmdSetLoop:
		switch cmd.LoopMode {
		case models.LoopTrack:
			wire = "command_list_begin\nrepeat 0\nsingle 1\ncommand_list_end"
		case models.LoopPlaylist:
			wire = "command_list_begin\nrepeat 1\nsingle 0\ncommand_list_end"
		default:
			wire = "command_list_begin\nrepeat 0\nsingle 0\ncommand_list_end"
		}
	case interfaces.CmdAddTrack:
		wire = "addid " + mpdQuote(cmd.Track.URI)
	case interfaces.CmdRemoveTrack:
		wire = fmt.Sprintf("delete %d", cmd.Position)
	case interfaces.CmdClearQueue:
		wire = "clear"
	case interfaces.CmdPlayQueueIndex:
		wire = fmt.Sprintf("play %d", cmd.QueueIndex)
	default:
		return fmt.Errorf("%w: command %s", interfaces.ErrInvalidArgument, cmd.Kind)
	}

	if _, err := m.command(wire); err != nil {
		if !errIsBackend(err) {
			m.setState(models.StateDisconnected)
		}
		return fmt.Errorf("mpd %s command %s: %w", m.name, cmd.Kind, err)
	}
	return nil
}

// ReceiveEvent implements interfaces.MediaController. The daemon pushes its
// own change notifications, inbound api events are not supported.
func (m *MPD) ReceiveEvent([]byte) error {
	return fmt.Errorf("%w: mpd player %s does not receive events", interfaces.ErrUnsupportedCapability, m.name)
}

func boolToWire(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
