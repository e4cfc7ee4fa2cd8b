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

//go:build linux
// +build linux

package players

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus"
	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// KindMPRIS tags session-bus media peers.
const KindMPRIS = "mpris"

// https://specifications.freedesktop.org/mpris-spec/latest/
const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	dbusPropsIface   = "org.freedesktop.DBus.Properties"
)

// MPRIS attaches to a media player on the session bus by bus name. It follows
// NameOwnerChanged so a respawning peer is re-attached, and maps
// PropertiesChanged signals to events. Capabilities track the peer's Can*
// properties and shrink to nothing while the peer is away.
type MPRIS struct {
	Base
	busName string

	connLock sync.Mutex
	conn     *dbus.Conn
	trackID  dbus.ObjectPath
}

// NewMPRIS creates a session-bus peer controller for busName, e.g.
// org.mpris.MediaPlayer2.spotify.
func NewMPRIS(name, busName string) (interfaces.MediaController, error) {
	if busName == "" {
		return nil, fmt.Errorf("%w: mpris player %s requires a bus name", interfaces.ErrInvalidArgument, name)
	}
	m := &MPRIS{
		Base:    newBase(name, busName, KindMPRIS, interfaces.NewCapabilities()),
		busName: busName,
	}
	m.Task.SetLoop(m.loop)
	return m, nil
}

func (m *MPRIS) loop() {
	retry := &backoff{}
	for {
		select {
		case <-m.StopChan():
			return
		default:
		}

		conn, err := dbus.SessionBus()
		if err != nil {
			m.setState(models.StateDisconnected)
			logrus.Warningf("MPRIS %s: session bus: %v", m.name, err)
			if !interruptibleSleep(retry.next(), m.StopChan()) {
				return
			}
			continue
		}
		retry.reset()

		m.connLock.Lock()
		m.conn = conn
		m.connLock.Unlock()

		m.watch(conn)

		m.connLock.Lock()
		m.conn = nil
		m.connLock.Unlock()

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

func (m *MPRIS) watch(conn *dbus.Conn) {
	bus := conn.BusObject()
	rules := []string{
		fmt.Sprintf("type='signal',interface='%s',member='PropertiesChanged',path='%s'", dbusPropsIface, mprisPath),
		fmt.Sprintf("type='signal',interface='org.freedesktop.DBus',member='NameOwnerChanged',arg0='%s'", m.busName),
	}
	for _, rule := range rules {
		if call := bus.Call("org.freedesktop.DBus.AddMatch", 0, rule); call.Err != nil {
			logrus.Errorf("MPRIS %s: add match: %v", m.name, call.Err)
			return
		}
	}

	signals := make(chan *dbus.Signal, 32)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	var hasOwner bool
	if call := bus.Call("org.freedesktop.DBus.NameHasOwner", 0, m.busName); call.Err == nil {
		call.Store(&hasOwner)
	}
	if hasOwner {
		m.attach()
	} else {
		logrus.Infof("MPRIS %s: peer %s not on bus yet", m.name, m.busName)
		m.detach()
	}

	ticker := newPositionTicker(&m.Base)
	defer ticker.stop()

	for {
		select {
		case <-m.StopChan():
			return
		case signal, ok := <-signals:
			if !ok {
				logrus.Warningf("MPRIS %s: bus connection lost", m.name)
				return
			}
			m.handleSignal(signal)
		case <-ticker.C():
			if m.State() == models.StatePlaying {
				m.pollPosition()
			}
		}
	}
}

func (m *MPRIS) handleSignal(signal *dbus.Signal) {
	switch signal.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(signal.Body) < 3 {
			return
		}
		name, _ := signal.Body[0].(string)
		newOwner, _ := signal.Body[2].(string)
		if name != m.busName {
			return
		}
		if newOwner == "" {
			logrus.Infof("MPRIS %s: peer %s left the bus", m.name, m.busName)
			m.detach()
		} else {
			logrus.Infof("MPRIS %s: peer %s appeared on the bus", m.name, m.busName)
			m.attach()
		}

	case dbusPropsIface + ".PropertiesChanged":
		if len(signal.Body) < 2 {
			return
		}
		iface, _ := signal.Body[0].(string)
		if iface != mprisPlayerIface {
			return
		}
		changed, _ := signal.Body[1].(map[string]dbus.Variant)
		m.applyProperties(changed)
	}
}

// attach reads the full property snapshot and derives capabilities.
func (m *MPRIS) attach() {
	props, err := m.allProperties()
	if err != nil {
		logrus.Warningf("MPRIS %s: read properties: %v", m.name, err)
		m.detach()
		return
	}
	caps := capsFromProperties(props)
	if obj := m.object(); obj != nil {
		if v, err := obj.GetProperty(mprisRootIface + ".CanQuit"); err == nil {
			if canQuit, _ := v.Value().(bool); canQuit {
				caps[interfaces.CapKill] = true
			}
		}
	}
	m.setCapabilities(caps)
	m.applyProperties(props)
}

// detach marks the peer gone: disconnected state, empty capability set.
func (m *MPRIS) detach() {
	m.setCapabilities(interfaces.NewCapabilities())
	m.setState(models.StateDisconnected)
}

func (m *MPRIS) allProperties() (map[string]dbus.Variant, error) {
	obj := m.object()
	if obj == nil {
		return nil, fmt.Errorf("%w: no bus connection", interfaces.ErrTransport)
	}
	call := obj.Call(dbusPropsIface+".GetAll", 0, mprisPlayerIface)
	if call.Err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrTransport, call.Err)
	}
	props := map[string]dbus.Variant{}
	if err := call.Store(&props); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackend, err)
	}
	return props, nil
}

func capsFromProperties(props map[string]dbus.Variant) interfaces.Capabilities {
	caps := interfaces.NewCapabilities()
	flag := func(name string) bool {
		v, ok := props[name]
		if !ok {
			return false
		}
		b, _ := v.Value().(bool)
		return b
	}
	if flag("CanPlay") {
		caps[interfaces.CapPlay] = true
	}
	if flag("CanPause") {
		caps[interfaces.CapPause] = true
		caps[interfaces.CapPlayPause] = true
	}
	if flag("CanControl") {
		caps[interfaces.CapStop] = true
		caps[interfaces.CapSetLoop] = true
		caps[interfaces.CapSetRandom] = true
	}
	if flag("CanSeek") {
		caps[interfaces.CapSeek] = true
	}
	if flag("CanGoNext") {
		caps[interfaces.CapNext] = true
	}
	if flag("CanGoPrevious") {
		caps[interfaces.CapPrevious] = true
	}
	return caps
}

func (m *MPRIS) applyProperties(props map[string]dbus.Variant) {
	if v, ok := props["PlaybackStatus"]; ok {
		status, _ := v.Value().(string)
		switch status {
		case "Playing":
			m.setState(models.StatePlaying)
		case "Paused":
			m.setState(models.StatePaused)
		case "Stopped":
			m.setState(models.StateStopped)
		}
	}
	if v, ok := props["LoopStatus"]; ok {
		status, _ := v.Value().(string)
		if mode, valid := models.ParseLoopMode(status); valid {
			m.setLoopMode(mode)
		}
	}
	if v, ok := props["Shuffle"]; ok {
		shuffle, _ := v.Value().(bool)
		m.setShuffle(shuffle)
	}
	if v, ok := props["Metadata"]; ok {
		metadata, _ := v.Value().(map[string]dbus.Variant)
		if metadata != nil {
			m.applyMetadata(metadata)
		}
	}
	if v, ok := props["Position"]; ok {
		if us, isInt := v.Value().(int64); isInt {
			m.setPosition(float64(us)/1e6, nil)
		}
	}
	if _, ok := props["CanPlay"]; ok {
		// capability flags changed at runtime
		all, err := m.allProperties()
		if err == nil {
			m.setCapabilities(capsFromProperties(all))
		}
	}
}

func (m *MPRIS) applyMetadata(metadata map[string]dbus.Variant) {
	str := func(name string) string {
		if v, ok := metadata[name]; ok {
			s, _ := v.Value().(string)
			return s
		}
		return ""
	}
	strList := func(name string) []string {
		if v, ok := metadata[name]; ok {
			list, _ := v.Value().([]string)
			return list
		}
		return nil
	}

	song := &models.Song{
		Title:       str("xesam:title"),
		Album:       str("xesam:album"),
		URI:         str("xesam:url"),
		CoverArtURL: str("mpris:artUrl"),
	}
	if artists := strList("xesam:artist"); len(artists) > 0 {
		song.Artist = joinArtists(artists)
	}
	if albumArtists := strList("xesam:albumArtist"); len(albumArtists) > 0 {
		song.AlbumArtist = joinArtists(albumArtists)
	}
	if genres := strList("xesam:genre"); len(genres) > 0 {
		song.Genre = genres[0]
	}
	if v, ok := metadata["mpris:length"]; ok {
		if us, isInt := v.Value().(int64); isInt {
			song.Duration = float64(us) / 1e6
		}
	}
	if v, ok := metadata["xesam:trackNumber"]; ok {
		if n, isInt := v.Value().(int32); isInt {
			song.Track = int(n)
		}
	}
	if v, ok := metadata["mpris:trackid"]; ok {
		if path, isPath := v.Value().(dbus.ObjectPath); isPath {
			m.connLock.Lock()
			m.trackID = path
			m.connLock.Unlock()
		}
	}
	if song.Title == "" && song.URI == "" {
		m.setSong(nil)
		return
	}
	m.setSong(song)
}

func (m *MPRIS) pollPosition() {
	obj := m.object()
	if obj == nil {
		return
	}
	v, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return
	}
	if us, ok := v.Value().(int64); ok {
		m.setPosition(float64(us)/1e6, nil)
	}
}

func (m *MPRIS) object() dbus.BusObject {
	m.connLock.Lock()
	defer m.connLock.Unlock()
	if m.conn == nil {
		return nil
	}
	return m.conn.Object(m.busName, mprisPath)
}

// Send implements interfaces.MediaController.
func (m *MPRIS) Send(cmd interfaces.Command) error {
	if err := m.requireCapability(cmd); err != nil {
		return fmt.Errorf("%w: %s on mpris player %s", err, cmd.Kind, m.name)
	}
	obj := m.object()
	if obj == nil {
		return fmt.Errorf("%w: mpris player %s has no bus connection", interfaces.ErrTransport, m.name)
	}

	var call *dbus.Call
	switch cmd.Kind {
	case interfaces.CmdPlay:
		call = obj.Call(mprisPlayerIface+".Play", 0)
	case interfaces.CmdPause:
		call = obj.Call(mprisPlayerIface+".Pause", 0)
	case interfaces.CmdStop:
		call = obj.Call(mprisPlayerIface+".Stop", 0)
	case interfaces.CmdPlayPause:
		call = obj.Call(mprisPlayerIface+".PlayPause", 0)
	case interfaces.CmdNext:
		call = obj.Call(mprisPlayerIface+".Next", 0)
	case interfaces.CmdPrevious:
		call = obj.Call(mprisPlayerIface+".Previous", 0)
	case interfaces.CmdKill:
		call = obj.Call(mprisRootIface+".Quit", 0)
	case interfaces.CmdSeek:
		m.connLock.Lock()
		trackID := m.trackID
		m.connLock.Unlock()
		target := int64(cmd.Seconds * 1e6)
		if trackID != "" {
			call = obj.Call(mprisPlayerIface+".SetPosition", 0, trackID, target)
		} else {
			current, _ := m.Position()
			call = obj.Call(mprisPlayerIface+".Seek", 0, target-int64(current*1e6))
		}
	case interfaces.CmdSetLoop:
		status := "None"
		switch cmd.LoopMode {
		case models.LoopTrack:
			status = "Track"
		case models.LoopPlaylist:
			status = "Playlist"
		}
		call = obj.Call(dbusPropsIface+".Set", 0, mprisPlayerIface, "LoopStatus", dbus.MakeVariant(status))
	case interfaces.CmdSetRandom:
		call = obj.Call(dbusPropsIface+".Set", 0, mprisPlayerIface, "Shuffle", dbus.MakeVariant(cmd.Random))
	default:
		return fmt.Errorf("%w: command %s", interfaces.ErrInvalidArgument, cmd.Kind)
	}

	if call.Err != nil {
		return fmt.Errorf("%w: mpris %s command %s: %v", interfaces.ErrTransport, m.name, cmd.Kind, call.Err)
	}
	return nil
}

// ReceiveEvent implements interfaces.MediaController. The bus pushes its own
// signals, inbound api events are not supported.
func (m *MPRIS) ReceiveEvent([]byte) error {
	return fmt.Errorf("%w: mpris player %s does not receive events", interfaces.ErrUnsupportedCapability, m.name)
}

func joinArtists(artists []string) string {
	out := ""
	for i, a := range artists {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
