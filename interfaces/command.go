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

package interfaces

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tryffel.net/go/audiocontrol/models"
)

// CommandKind names a controller command.
type CommandKind string

const (
	CmdPlay           CommandKind = "play"
	CmdPause          CommandKind = "pause"
	CmdStop           CommandKind = "stop"
	CmdPlayPause      CommandKind = "playpause"
	CmdNext           CommandKind = "next"
	CmdPrevious       CommandKind = "previous"
	CmdKill           CommandKind = "kill"
	CmdSeek           CommandKind = "seek"
	CmdSetLoop        CommandKind = "set_loop"
	CmdSetRandom      CommandKind = "set_random"
	CmdAddTrack       CommandKind = "add_track"
	CmdRemoveTrack    CommandKind = "remove_track"
	CmdClearQueue     CommandKind = "clear_queue"
	CmdPlayQueueIndex CommandKind = "play_queue_index"
)

// AddTrack is the body of an add_track command. URI is mandatory.
type AddTrack struct {
	URI         string `json:"uri"`
	Title       string `json:"title,omitempty"`
	CoverArtURL string `json:"coverart_url,omitempty"`
}

// Command is a single command sent to a controller. Only the field matching
// Kind is meaningful.
type Command struct {
	Kind       CommandKind
	Seconds    float64
	LoopMode   models.LoopMode
	Random     bool
	Position   int
	QueueIndex int
	Track      *AddTrack
}

// RequiredCapability maps a command to the capability gating it.
func (c Command) RequiredCapability() Capability {
	switch c.Kind {
	case CmdPlay:
		return CapPlay
	case CmdPause:
		return CapPause
	case CmdStop:
		return CapStop
	case CmdPlayPause:
		return CapPlayPause
	case CmdNext:
		return CapNext
	case CmdPrevious:
		return CapPrevious
	case CmdKill:
		return CapKill
	case CmdSeek:
		return CapSeek
	case CmdSetLoop:
		return CapSetLoop
	case CmdSetRandom:
		return CapSetRandom
	case CmdAddTrack, CmdRemoveTrack, CmdClearQueue, CmdPlayQueueIndex:
		return CapQueue
	}
	return ""
}

func (c Command) String() string {
	return string(c.Kind)
}

// ParseCommand parses the wire form of a command. Parameterised commands carry
// their argument after a colon: seek:12.5, set_loop:playlist, set_random:on,
// remove_track:2, play_queue_index:0. add_track takes its parameters from body,
// a JSON object with mandatory uri. Malformed input is a validation error, it
// never reaches a backend.
func ParseCommand(wire string, body []byte) (Command, error) {
	name := wire
	arg := ""
	if idx := strings.IndexByte(wire, ':'); idx >= 0 {
		name = wire[:idx]
		arg = wire[idx+1:]
	}

	switch CommandKind(name) {
	case CmdPlay, CmdPause, CmdStop, CmdPlayPause, CmdNext, CmdPrevious, CmdKill, CmdClearQueue:
		if arg != "" {
			return Command{}, fmt.Errorf("%w: command %s takes no argument", ErrInvalidArgument, name)
		}
		return Command{Kind: CommandKind(name)}, nil

	case CmdSeek:
		sec, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Command{}, fmt.Errorf("%w: seek position '%s'", ErrInvalidArgument, arg)
		}
		return Command{Kind: CmdSeek, Seconds: sec}, nil

	case CmdSetLoop:
		mode, ok := models.ParseLoopMode(arg)
		if !ok {
			return Command{}, fmt.Errorf("%w: loop mode '%s'", ErrInvalidArgument, arg)
		}
		return Command{Kind: CmdSetLoop, LoopMode: mode}, nil

	case CmdSetRandom:
		random, err := parseBool(arg)
		if err != nil {
			return Command{}, fmt.Errorf("%w: random flag '%s'", ErrInvalidArgument, arg)
		}
		return Command{Kind: CmdSetRandom, Random: random}, nil

	case CmdRemoveTrack:
		pos, err := strconv.Atoi(arg)
		if err != nil || pos < 0 {
			return Command{}, fmt.Errorf("%w: track position '%s'", ErrInvalidArgument, arg)
		}
		return Command{Kind: CmdRemoveTrack, Position: pos}, nil

	case CmdPlayQueueIndex:
		idx, err := strconv.Atoi(arg)
		if err != nil || idx < 0 {
			return Command{}, fmt.Errorf("%w: queue index '%s'", ErrInvalidArgument, arg)
		}
		return Command{Kind: CmdPlayQueueIndex, QueueIndex: idx}, nil

	case CmdAddTrack:
		if len(body) == 0 {
			return Command{}, fmt.Errorf("%w: add_track requires a json body", ErrInvalidArgument)
		}
		track := &AddTrack{}
		if err := json.Unmarshal(body, track); err != nil {
			return Command{}, fmt.Errorf("%w: add_track body: %v", ErrInvalidArgument, err)
		}
		if track.URI == "" {
			return Command{}, fmt.Errorf("%w: add_track requires uri", ErrInvalidArgument)
		}
		return Command{Kind: CmdAddTrack, Track: track}, nil
	}
	return Command{}, fmt.Errorf("%w: unknown command '%s'", ErrInvalidArgument, name)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "on", "1":
		return true, nil
	case "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool: %s", s)
}
