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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tryffel.net/go/audiocontrol/cache"
	"tryffel.net/go/audiocontrol/controller"
	"tryffel.net/go/audiocontrol/coverart"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/favourites"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/players"
)

func testServer(t *testing.T, names ...string) (*httptest.Server, *controller.AudioController, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(bus.Close)

	audio := controller.New(bus)
	for _, name := range names {
		player := players.NewGeneric(name,
			interfaces.NewCapabilities(interfaces.CapPlay, interfaces.CapPause, interfaces.CapQueue), "")
		require.NoError(t, audio.Register(player))
	}
	require.NoError(t, audio.Start())
	t.Cleanup(audio.Stop)

	attributeCache, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { attributeCache.Close() })

	s := NewServer("127.0.0.1:0", "test",
		audio, bus, attributeCache, coverart.NewAggregator(),
		coverart.NewMeasurer(attributeCache), favourites.NewAggregator(), nil)

	server := httptest.NewServer(s.router())
	t.Cleanup(server.Close)
	return server, audio, bus
}

func getJSON(t *testing.T, url string, dest interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body string, dest interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func TestVersion(t *testing.T) {
	server, _, _ := testServer(t, "gp")
	got := map[string]string{}
	status := getJSON(t, server.URL+"/api/version", &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "test", got["version"])
}

// inbound event updates state and now-playing reflects it.
func TestInboundEventUpdatesState(t *testing.T) {
	server, _, bus := testServer(t, "gp")

	sub := bus.Subscribe("test", eventbus.Filter{
		Types: []interfaces.EventType{interfaces.EventStateChanged},
	})

	reply := envelope{}
	status := postJSON(t, server.URL+"/api/player/gp/update",
		`{"type":"state_changed","state":"playing"}`, &reply)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reply.Success)

	snapshot := nowPlaying{}
	status = getJSON(t, server.URL+"/api/now-playing", &snapshot)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "gp", snapshot.Player.Name)
	assert.Equal(t, "Playing", string(snapshot.State))

	select {
	case event := <-sub.Events():
		assert.Equal(t, interfaces.EventStateChanged, event.Type)
		assert.True(t, event.Source.IsActive)
	case <-time.After(time.Second):
		t.Fatal("no state_changed event on the bus")
	}
}

func TestInboundEventValidation(t *testing.T) {
	server, _, _ := testServer(t, "gp")

	reply := envelope{}
	status := postJSON(t, server.URL+"/api/player/nope/update",
		`{"type":"state_changed","state":"playing"}`, &reply)
	assert.Equal(t, http.StatusNotFound, status)

	status = postJSON(t, server.URL+"/api/player/gp/update",
		`{"type":"state_changed","state":"levitating"}`, &reply)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCommandDispatch(t *testing.T) {
	server, audio, _ := testServer(t, "gp")

	reply := envelope{}
	status := postJSON(t, server.URL+"/api/player/gp/command/play", "", &reply)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reply.Success)
	assert.Equal(t, "Playing", string(audio.Active().State()))

	// unsupported capability is a client error, not a backend one
	status = postJSON(t, server.URL+"/api/player/gp/command/next", "", &reply)
	assert.Equal(t, http.StatusBadRequest, status)

	// malformed parameter
	status = postJSON(t, server.URL+"/api/player/gp/command/seek:abc", "", &reply)
	assert.Equal(t, http.StatusBadRequest, status)

	// the special name resolves at dispatch
	status = postJSON(t, server.URL+"/api/player/active/command/pause", "", &reply)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reply.Success)

	// add_track requires a body
	status = postJSON(t, server.URL+"/api/player/gp/command/add_track", "", &reply)
	assert.Equal(t, http.StatusBadRequest, status)
	status = postJSON(t, server.URL+"/api/player/gp/command/add_track", `{"uri":"u:1"}`, &reply)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reply.Success)

	queue := []map[string]interface{}{}
	status = getJSON(t, server.URL+"/api/player/gp/queue", &queue)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, queue, 1)
}

func TestPlayersListing(t *testing.T) {
	server, _, _ := testServer(t, "a", "b")

	list := []playerDescriptor{}
	status := getJSON(t, server.URL+"/api/players", &list)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list, 2)

	single := playerDescriptor{}
	status = getJSON(t, server.URL+"/api/player", &single)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, single.IsActive)
}

// websocket subscription filter: only matching events are delivered.
func TestWebsocketSubscriptionFilter(t *testing.T) {
	server, _, _ := testServer(t, "gp", "other")

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	welcome := map[string]interface{}{}
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "welcome", welcome["type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"players":     []string{"gp"},
		"event_types": []string{"state_changed"},
	}))
	ack := map[string]interface{}{}
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "subscription_updated", ack["type"])

	// events for another player and another type must not arrive
	postJSON(t, server.URL+"/api/player/other/update", `{"type":"state_changed","state":"playing"}`, nil)
	postJSON(t, server.URL+"/api/player/gp/update", `{"type":"shuffle_changed","shuffle":true}`, nil)
	postJSON(t, server.URL+"/api/player/gp/update", `{"type":"state_changed","state":"paused"}`, nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	message := map[string]interface{}{}
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, "state_changed", message["type"])
	assert.Equal(t, "gp", message["player_name"])
	assert.Equal(t, "Paused", message["state"])
}

func TestCacheEndpoints(t *testing.T) {
	server, _, _ := testServer(t, "gp")

	entries := []map[string]interface{}{}
	status := getJSON(t, server.URL+"/api/cache/list/artist", &entries)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, entries)

	out := map[string]int{}
	status = postJSON(t, server.URL+"/api/cache/clean", `{"all":true}`, &out)
	assert.Equal(t, http.StatusOK, status)
}
