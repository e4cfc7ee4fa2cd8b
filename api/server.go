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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/cache"
	"tryffel.net/go/audiocontrol/controller"
	"tryffel.net/go/audiocontrol/coverart"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/favourites"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/volume"
)

// maxBodySize bounds inbound payloads.
const maxBodySize = 256 * 1024

// Server is the HTTP boundary.
type Server struct {
	audio      *controller.AudioController
	bus        *eventbus.Bus
	cache      *cache.Cache
	covers     *coverart.Aggregator
	measurer   *coverart.Measurer
	favourites *favourites.Aggregator
	volume     *volume.Control
	version    string

	httpServer *http.Server
}

// NewServer wires the boundary. Volume may be nil when no control is bound.
func NewServer(addr, version string, audio *controller.AudioController, bus *eventbus.Bus,
	attributeCache *cache.Cache, covers *coverart.Aggregator, measurer *coverart.Measurer,
	favouritesAggregator *favourites.Aggregator, volumeControl *volume.Control) *Server {

	s := &Server{
		audio:      audio,
		bus:        bus,
		cache:      attributeCache,
		covers:     covers,
		measurer:   measurer,
		favourites: favouritesAggregator,
		volume:     volumeControl,
		version:    version,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.getVersion)
		r.Get("/player", s.getActivePlayer)
		r.Get("/players", s.getPlayers)
		r.Get("/now-playing", s.getNowPlaying)
		r.Post("/player/{name}/command/{command}", s.postCommand)
		r.Post("/player/{name}/update", s.postUpdate)
		r.Get("/player/{name}/queue", s.getQueue)
		r.Get("/player/{name}/meta", s.getMeta)
		r.Get("/player/{name}/meta/{key}", s.getMetaKey)

		r.Get("/coverart", s.getCoverArt)

		r.Get("/favourites", s.getFavourite)
		r.Post("/favourites/add", s.postFavouriteAdd)
		r.Post("/favourites/remove", s.postFavouriteRemove)
		r.Get("/favourites/providers", s.getFavouriteProviders)

		r.Get("/volume", s.getVolume)
		r.Post("/volume/set", s.postVolumeSet)
		r.Post("/volume/up", s.postVolumeUp)
		r.Post("/volume/down", s.postVolumeDown)
		r.Post("/volume/mute", s.postVolumeMute)

		r.Get("/cache/list/{prefix}", s.getCacheList)
		r.Post("/cache/clean", s.postCacheClean)

		r.Get("/events", s.handleWebsocket)
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

// Start begins serving in the background.
func (s *Server) Start() error {
	listenErr := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
			logrus.Errorf("http server: %v", err)
		}
	}()
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	case <-time.After(100 * time.Millisecond):
	}
	logrus.Infof("Listening on %s", s.httpServer.Addr)
	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) getActivePlayer(w http.ResponseWriter, _ *http.Request) {
	active := s.audio.Active()
	if active == nil {
		writeError(w, fmt.Errorf("%w: no players configured", interfaces.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, describe(active, true))
}

func (s *Server) getPlayers(w http.ResponseWriter, _ *http.Request) {
	active := s.audio.Active()
	out := []playerDescriptor{}
	for _, c := range s.audio.Controllers() {
		out = append(out, describe(c, c == active))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getNowPlaying(w http.ResponseWriter, _ *http.Request) {
	active := s.audio.Active()
	if active == nil {
		writeError(w, fmt.Errorf("%w: no players configured", interfaces.ErrNotFound))
		return
	}
	snapshot := nowPlaying{
		Player:   describe(active, true),
		Song:     active.Song(),
		State:    active.State(),
		Shuffle:  active.Shuffle(),
		LoopMode: active.LoopMode(),
	}
	if position, ok := active.Position(); ok {
		snapshot.Position = &position
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// postCommand parses the wire command and dispatches it. A failing backend is
// a success envelope with success false, not an http error.
func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	wire := chi.URLParam(r, "command")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, fmt.Errorf("%w: read body: %v", interfaces.ErrInvalidArgument, err))
		return
	}

	cmd, err := interfaces.ParseCommand(wire, body)
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.audio.Send(name, cmd)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Success: true})
	case errors.Is(err, interfaces.ErrNotFound),
		errors.Is(err, interfaces.ErrUnsupportedCapability),
		errors.Is(err, interfaces.ErrInvalidArgument):
		writeError(w, err)
	default:
		// offline backend: report in the envelope, do not throw
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: err.Error()})
	}
}

func (s *Server) postUpdate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, fmt.Errorf("%w: read body: %v", interfaces.ErrInvalidArgument, err))
		return
	}
	if err := s.audio.ReceiveEvent(name, payload); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) getQueue(w http.ResponseWriter, r *http.Request) {
	c, err := s.audio.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Queue())
}

func (s *Server) getMeta(w http.ResponseWriter, r *http.Request) {
	c, err := s.audio.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	song := c.Song()
	if song == nil || song.Metadata == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, song.Metadata)
}

func (s *Server) getMetaKey(w http.ResponseWriter, r *http.Request) {
	c, err := s.audio.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	key := chi.URLParam(r, "key")
	song := c.Song()
	if song == nil || song.Metadata == nil {
		writeError(w, fmt.Errorf("%w: meta key '%s'", interfaces.ErrNotFound, key))
		return
	}
	value, ok := song.Metadata[key]
	if !ok {
		writeError(w, fmt.Errorf("%w: meta key '%s'", interfaces.ErrNotFound, key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{key: value})
}

// getCoverArt dispatches by query parameters: url, artist, artist+title, or
// artist+album(+year).
func (s *Server) getCoverArt(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	artist := query.Get("artist")
	title := query.Get("title")
	album := query.Get("album")
	sourceURL := query.Get("url")

	ctx := r.Context()
	var results []coverart.Result
	switch {
	case sourceURL != "":
		results = s.covers.ByURL(ctx, sourceURL)
	case artist != "" && album != "":
		year := 0
		fmt.Sscanf(query.Get("year"), "%d", &year)
		results = s.covers.ByAlbum(ctx, album, artist, year)
	case artist != "" && title != "":
		results = s.covers.BySong(ctx, title, artist)
	case artist != "":
		results = s.covers.ByArtist(ctx, artist)
	default:
		writeError(w, fmt.Errorf("%w: coverart needs url, artist, artist+title or artist+album",
			interfaces.ErrInvalidArgument))
		return
	}
	s.measurer.Fill(ctx, results)
	writeJSON(w, http.StatusOK, results)
}

type favouriteRequest struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

func (s *Server) getFavourite(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	title := r.URL.Query().Get("title")
	if artist == "" || title == "" {
		writeError(w, fmt.Errorf("%w: favourites needs artist and title", interfaces.ErrInvalidArgument))
		return
	}
	writeJSON(w, http.StatusOK, s.favourites.IsFavourite(r.Context(), artist, title))
}

func (s *Server) postFavouriteAdd(w http.ResponseWriter, r *http.Request) {
	s.favouriteWrite(w, r, s.favourites.Add, true)
}

func (s *Server) postFavouriteRemove(w http.ResponseWriter, r *http.Request) {
	s.favouriteWrite(w, r, s.favourites.Remove, false)
}

func (s *Server) favouriteWrite(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, string) []favourites.WriteResult, liked bool) {

	req := favouriteRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Artist == "" || req.Title == "" {
		writeError(w, fmt.Errorf("%w: favourites needs artist and title", interfaces.ErrInvalidArgument))
		return
	}
	results := op(r.Context(), req.Artist, req.Title)
	s.reflectLiked(req.Artist, req.Title, liked)
	writeJSON(w, http.StatusOK, results)
}

// reflectLiked publishes a liked-flag overlay when the written favourite is
// the active song.
func (s *Server) reflectLiked(artist, title string, liked bool) {
	active := s.audio.Active()
	if active == nil {
		return
	}
	song := active.Song()
	if song == nil || song.Artist != artist || song.Title != title {
		return
	}
	s.bus.Publish(interfaces.Event{
		Type: interfaces.EventSongInformationUpdate,
		Source: interfaces.Source{
			PlayerID:   active.ID(),
			PlayerName: active.Name(),
			Kind:       active.Kind(),
			IsActive:   true,
		},
		SongUpdate: &models.Song{Liked: liked},
	})
}

func (s *Server) getFavouriteProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.favourites.Providers())
}

func (s *Server) getVolume(w http.ResponseWriter, _ *http.Request) {
	if s.volume == nil {
		writeError(w, fmt.Errorf("%w: no volume control bound", interfaces.ErrNotFound))
		return
	}
	state, err := s.volume.State()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"info":  s.volume.Info(),
		"state": state,
	})
}

type volumeSetRequest struct {
	Percent  *int     `json:"percent,omitempty"`
	Decibels *float64 `json:"decibels,omitempty"`
	Raw      *int     `json:"raw,omitempty"`
}

func (s *Server) postVolumeSet(w http.ResponseWriter, r *http.Request) {
	if s.volume == nil {
		writeError(w, fmt.Errorf("%w: no volume control bound", interfaces.ErrNotFound))
		return
	}
	req := volumeSetRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var err error
	switch {
	case req.Percent != nil:
		err = s.volume.SetPercent(*req.Percent)
	case req.Decibels != nil:
		err = s.volume.SetDecibels(*req.Decibels)
	case req.Raw != nil:
		err = s.volume.SetRaw(*req.Raw)
	default:
		err = fmt.Errorf("%w: set needs percent, decibels or raw", interfaces.ErrInvalidArgument)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) postVolumeUp(w http.ResponseWriter, r *http.Request) {
	s.volumeStep(w, r, s.volumeControlIncrease)
}

func (s *Server) postVolumeDown(w http.ResponseWriter, r *http.Request) {
	s.volumeStep(w, r, s.volumeControlDecrease)
}

func (s *Server) volumeControlIncrease(amount int) error { return s.volume.Increase(amount) }
func (s *Server) volumeControlDecrease(amount int) error { return s.volume.Decrease(amount) }

func (s *Server) volumeStep(w http.ResponseWriter, r *http.Request, op func(int) error) {
	if s.volume == nil {
		writeError(w, fmt.Errorf("%w: no volume control bound", interfaces.ErrNotFound))
		return
	}
	amount := 5
	fmt.Sscanf(r.URL.Query().Get("amount"), "%d", &amount)
	if err := op(amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) postVolumeMute(w http.ResponseWriter, _ *http.Request) {
	if s.volume == nil {
		writeError(w, fmt.Errorf("%w: no volume control bound", interfaces.ErrNotFound))
		return
	}
	if err := s.volume.ToggleMute(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) getCacheList(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")
	detailed := r.URL.Query().Get("detailed") == "true"
	entries, err := s.cache.List(prefix, detailed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) postCacheClean(w http.ResponseWriter, r *http.Request) {
	filter := cache.CleanFilter{}
	if err := decodeBody(r, &filter); err != nil {
		writeError(w, err)
		return
	}
	removed, err := s.cache.Clean(filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func decodeBody(r *http.Request, dest interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", interfaces.ErrInvalidArgument, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", interfaces.ErrInvalidArgument)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: parse body: %v", interfaces.ErrInvalidArgument, err)
	}
	return nil
}
