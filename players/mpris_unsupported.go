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

//go:build !linux
// +build !linux

package players

import (
	"fmt"
	"runtime"

	"tryffel.net/go/audiocontrol/interfaces"
)

// KindMPRIS tags session-bus media peers.
const KindMPRIS = "mpris"

// NewMPRIS fails on platforms without a session bus. Declaring an mpris
// player in configuration is a configuration-time error here, never a silent
// skip.
func NewMPRIS(name, busName string) (interfaces.MediaController, error) {
	return nil, fmt.Errorf("%w: mpris player %s not available on %s, the session bus is linux-only",
		interfaces.ErrInvalidArgument, name, runtime.GOOS)
}
