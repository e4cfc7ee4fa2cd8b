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
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/ratelimit"
	"tryffel.net/go/audiocontrol/settings"
)

// settingsKey is the JSON slot in the settings store holding local
// favourites.
const settingsKey = "favourites"

// Local keeps favourites in the settings store. Always enabled and active,
// read-write.
type Local struct {
	store *settings.Store
}

// NewLocal creates the local provider over store.
func NewLocal(store *settings.Store) *Local {
	return &Local{store: store}
}

// Name implements Provider.
func (l *Local) Name() string { return "local" }

// IsEnabled implements Provider.
func (l *Local) IsEnabled() bool { return l.store != nil }

// IsActive implements Provider.
func (l *Local) IsActive() bool { return l.store != nil }

func favouriteKey(artist, title string) string {
	return strings.ToLower(artist) + "\x00" + strings.ToLower(title)
}

func (l *Local) load() (map[string]bool, error) {
	set := map[string]bool{}
	err := l.store.GetJSON(settingsKey, &set)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return nil, err
	}
	return set, nil
}

// IsFavourite implements Provider.
func (l *Local) IsFavourite(_ context.Context, artist, title string) (bool, error) {
	set, err := l.load()
	if err != nil {
		return false, err
	}
	return set[favouriteKey(artist, title)], nil
}

// Add implements Provider.
func (l *Local) Add(_ context.Context, artist, title string) error {
	set, err := l.load()
	if err != nil {
		return err
	}
	set[favouriteKey(artist, title)] = true
	return l.store.SetJSON(settingsKey, set)
}

// Remove implements Provider.
func (l *Local) Remove(_ context.Context, artist, title string) error {
	set, err := l.load()
	if err != nil {
		return err
	}
	delete(set, favouriteKey(artist, title))
	return l.store.SetJSON(settingsKey, set)
}

// LastFM mirrors favourites as loved tracks on the scrobble service.
// Enabled with an api key, active with a session key and username.
type LastFM struct {
	limiter    *ratelimit.Registry
	client     *http.Client
	apiKey     string
	sessionKey string
	user       string
	baseURL    string
	sign       func(params url.Values) string
}

// NewLastFM creates the scrobble-service provider. sign computes the api
// signature over the call parameters with the shared secret.
func NewLastFM(limiter *ratelimit.Registry, apiKey, sessionKey, user string,
	sign func(params url.Values) string) *LastFM {

	return &LastFM{
		limiter:    limiter,
		client:     &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		sessionKey: sessionKey,
		user:       user,
		baseURL:    "https://ws.audioscrobbler.com/2.0/",
		sign:       sign,
	}
}

// Name implements Provider.
func (l *LastFM) Name() string { return "lastfm" }

// IsEnabled implements Provider.
func (l *LastFM) IsEnabled() bool { return l.apiKey != "" }

// IsActive implements Provider.
func (l *LastFM) IsActive() bool {
	return l.apiKey != "" && l.sessionKey != "" && l.user != ""
}

// IsFavourite implements Provider.
func (l *LastFM) IsFavourite(ctx context.Context, artist, title string) (bool, error) {
	if err := l.limiter.Wait(ctx, "lastfm"); err != nil {
		return false, fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}
	query := url.Values{}
	query.Set("method", "track.getinfo")
	query.Set("artist", artist)
	query.Set("track", title)
	query.Set("username", l.user)
	query.Set("api_key", l.apiKey)
	query.Set("format", "json")

	resp, err := l.client.Get(l.baseURL + "?" + query.Encode())
	if err != nil {
		return false, fmt.Errorf("%w: lastfm: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()
	result := struct {
		Track struct {
			UserLoved string `json:"userloved"`
		} `json:"track"`
	}{}
	if err := jsonDecode(resp, &result); err != nil {
		return false, err
	}
	return result.Track.UserLoved == "1", nil
}

// Add implements Provider.
func (l *LastFM) Add(ctx context.Context, artist, title string) error {
	return l.loveCall(ctx, "track.love", artist, title)
}

// Remove implements Provider.
func (l *LastFM) Remove(ctx context.Context, artist, title string) error {
	return l.loveCall(ctx, "track.unlove", artist, title)
}

func (l *LastFM) loveCall(ctx context.Context, method, artist, title string) error {
	if err := l.limiter.Wait(ctx, "lastfm"); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}
	params := url.Values{}
	params.Set("method", method)
	params.Set("artist", artist)
	params.Set("track", title)
	params.Set("api_key", l.apiKey)
	params.Set("sk", l.sessionKey)
	params.Set("api_sig", l.sign(params))
	params.Set("format", "json")

	resp, err := l.client.PostForm(l.baseURL, params)
	if err != nil {
		return fmt.Errorf("%w: lastfm %s: %v", interfaces.ErrTransport, method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: lastfm %s returned status %d", interfaces.ErrBackend, method, resp.StatusCode)
	}
	return nil
}

// Spotify reports saved tracks on the streaming service. Read-only here:
// saving is left to the streaming client itself.
type Spotify struct {
	limiter *ratelimit.Registry
	client  *http.Client
	token   func() string
	baseURL string
}

// NewSpotify creates the streaming-service provider.
func NewSpotify(limiter *ratelimit.Registry, token func() string) *Spotify {
	return &Spotify{
		limiter: limiter,
		client:  &http.Client{Timeout: 10 * time.Second},
		token:   token,
		baseURL: "https://api.spotify.com/v1",
	}
}

// Name implements Provider.
func (s *Spotify) Name() string { return "spotify" }

// IsEnabled implements Provider.
func (s *Spotify) IsEnabled() bool { return true }

// IsActive implements Provider.
func (s *Spotify) IsActive() bool { return s.token() != "" }

// IsFavourite implements Provider.
func (s *Spotify) IsFavourite(ctx context.Context, artist, title string) (bool, error) {
	if err := s.limiter.Wait(ctx, "spotify"); err != nil {
		return false, fmt.Errorf("%w: rate limit wait: %v", interfaces.ErrTimeout, err)
	}
	query := url.Values{}
	query.Set("q", fmt.Sprintf("track:%s artist:%s", title, artist))
	query.Set("type", "track")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token())
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: spotify: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	search := struct {
		Tracks struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"tracks"`
	}{}
	if err := jsonDecode(resp, &search); err != nil {
		return false, err
	}
	if len(search.Tracks.Items) == 0 {
		return false, nil
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"/me/tracks/contains?ids="+search.Tracks.Items[0].ID, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token())
	resp, err = s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: spotify: %v", interfaces.ErrTransport, err)
	}
	defer resp.Body.Close()

	contains := []bool{}
	if err := jsonDecode(resp, &contains); err != nil {
		return false, err
	}
	return len(contains) > 0 && contains[0], nil
}

// Add implements Provider. Read-only.
func (s *Spotify) Add(context.Context, string, string) error {
	return interfaces.ErrReadOnly
}

// Remove implements Provider. Read-only.
func (s *Spotify) Remove(context.Context, string, string) error {
	return interfaces.ErrReadOnly
}
