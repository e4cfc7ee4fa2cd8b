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

package favourites

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tryffel.net/go/audiocontrol/interfaces"
)

func jsonDecode(resp *http.Response, dest interface{}) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: provider returned status %d", interfaces.ErrTransport, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: parse provider response: %v", interfaces.ErrTransport, err)
	}
	return nil
}
