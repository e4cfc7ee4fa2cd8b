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
	"errors"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
)

// positionTicker drives position polling, following the controller's active
// flag: the active player ticks every second, inactive ones throttle.
type positionTicker struct {
	base     *Base
	ticker   *time.Ticker
	interval time.Duration
}

func newPositionTicker(base *Base) *positionTicker {
	interval := base.positionInterval()
	return &positionTicker{
		base:     base,
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// C returns the tick channel, adjusting cadence when the active flag flipped
// since the last call.
func (t *positionTicker) C() <-chan time.Time {
	if interval := t.base.positionInterval(); interval != t.interval {
		t.interval = interval
		t.ticker.Reset(interval)
	}
	return t.ticker.C
}

func (t *positionTicker) stop() {
	t.ticker.Stop()
}

func errIsBackend(err error) bool {
	return errors.Is(err, interfaces.ErrBackend)
}
