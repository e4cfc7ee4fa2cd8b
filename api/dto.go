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

// Package api exposes the kernel over HTTP/JSON and a WebSocket event
// stream. It is a boundary: requests dispatch to kernel operations, events
// translate from the bus to the wire.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/models"
)

// envelope is the uniform command response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// playerDescriptor describes one controller on the wire.
type playerDescriptor struct {
	Name         string             `json:"name"`
	Kind         string             `json:"kind"`
	ID           string             `json:"id"`
	IsActive     bool               `json:"is_active"`
	State        models.PlayerState `json:"state"`
	Capabilities []string           `json:"capabilities"`
}

// nowPlaying is the combined snapshot.
type nowPlaying struct {
	Player   playerDescriptor `json:"player"`
	Song     *models.Song     `json:"song"`
	State    models.PlayerState `json:"state"`
	Shuffle  bool             `json:"shuffle"`
	LoopMode models.LoopMode  `json:"loop_mode"`
	Position *float64         `json:"position"`
}

func describe(c interfaces.MediaController, active bool) playerDescriptor {
	return playerDescriptor{
		Name:         c.Name(),
		Kind:         c.Kind(),
		ID:           c.ID(),
		IsActive:     active,
		State:        c.State(),
		Capabilities: c.Capabilities().List(),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("write response: %v", err)
	}
}

// writeError maps kernel errors to status codes: NotFound 404,
// UnsupportedCapability and InvalidArgument 400, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrUnsupportedCapability),
		errors.Is(err, interfaces.ErrInvalidArgument):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, envelope{Success: false, Message: err.Error()})
}
