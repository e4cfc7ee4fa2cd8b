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

package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/interfaces"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the daemon serves local network uis, cross-origin is expected
	CheckOrigin: func(*http.Request) bool { return true },
}

// subscriptionMessage is the client's filter request. Null players or
// event_types means all.
type subscriptionMessage struct {
	Players    []string `json:"players"`
	EventTypes []string `json:"event_types"`
}

// handleWebsocket upgrades the connection and translates bus events to wire
// messages until the client leaves. New connections start subscribed to
// everything.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Warningf("websocket upgrade: %v", err)
		return
	}

	sub := s.bus.Subscribe("websocket:"+r.RemoteAddr, eventbus.Filter{})
	defer s.bus.Unsubscribe(sub)

	client := &wsClient{conn: conn}
	client.send(map[string]interface{}{
		"type":    "welcome",
		"version": s.version,
	})

	done := make(chan struct{})
	go client.readLoop(sub, done)

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := client.send(eventToWire(event)); err != nil {
				logrus.Debugf("websocket write: %v", err)
				return
			}
		case <-ping.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}

type wsClient struct {
	lock sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) send(body interface{}) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(body)
}

func (c *wsClient) ping() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// readLoop consumes subscription updates until the client disconnects.
func (c *wsClient) readLoop(sub *eventbus.Subscription, done chan struct{}) {
	defer close(done)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		request := subscriptionMessage{}
		if err := json.Unmarshal(payload, &request); err != nil {
			logrus.Debugf("websocket: malformed subscription: %v", err)
			continue
		}

		filter := eventbus.Filter{Players: request.Players}
		// the 'active' pseudo-player follows the election instead of a name
		if len(request.Players) == 1 && request.Players[0] == "active" {
			filter = eventbus.Filter{ActiveOnly: true}
		}
		if request.EventTypes != nil {
			types := make([]interfaces.EventType, 0, len(request.EventTypes))
			for _, t := range request.EventTypes {
				types = append(types, interfaces.EventType(t))
			}
			filter.Types = types
		}
		sub.SetFilter(filter)

		ack := map[string]interface{}{
			"type":        "subscription_updated",
			"players":     request.Players,
			"event_types": request.EventTypes,
		}
		if err := c.send(ack); err != nil {
			return
		}
	}
}

// eventToWire flattens a bus event into the wire object: type, player_name,
// source and the event-specific payload fields.
func eventToWire(event interfaces.Event) map[string]interface{} {
	raw, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("marshal event: %v", err)
		return map[string]interface{}{"type": event.Type}
	}
	wire := map[string]interface{}{}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return map[string]interface{}{"type": event.Type}
	}
	wire["player_name"] = event.Source.PlayerName
	return wire
}
