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

package cmd

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/api"
	"tryffel.net/go/audiocontrol/cache"
	"tryffel.net/go/audiocontrol/config"
	"tryffel.net/go/audiocontrol/controller"
	"tryffel.net/go/audiocontrol/coverart"
	"tryffel.net/go/audiocontrol/eventbus"
	"tryffel.net/go/audiocontrol/favourites"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/meta"
	"tryffel.net/go/audiocontrol/models"
	"tryffel.net/go/audiocontrol/players"
	"tryffel.net/go/audiocontrol/ratelimit"
	"tryffel.net/go/audiocontrol/secstore"
	"tryffel.net/go/audiocontrol/settings"
	"tryffel.net/go/audiocontrol/volume"
)

// app owns the global instances and their startup/shutdown order.
type app struct {
	cache    *cache.Cache
	settings *settings.Store
	secrets  *secstore.Store
	limiter  *ratelimit.Registry
	bus      *eventbus.Bus
	audio    *controller.AudioController
	enricher *meta.Worker
	server   *api.Server
}

func initApplication() (*app, error) {
	if err := initLogging(); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logrus.Infof("############# %s v%s ############", config.AppName, config.Version)

	a := &app{}
	if err := a.initStores(); err != nil {
		return nil, err
	}
	a.initServices()
	if err := a.initPlayers(); err != nil {
		return nil, err
	}
	if err := a.initBoundary(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) initStores() error {
	conf := config.AppConfig
	var err error

	a.cache, err = cache.Open(conf.Cache.AttributeCachePath)
	if err != nil {
		return fmt.Errorf("open attribute cache: %w", err)
	}
	a.settings, err = settings.Open(conf.SettingsPath())
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}

	if conf.General.SecurityStore != "" {
		a.secrets, err = secstore.Open(conf.General.SecurityStore)
		if err != nil {
			// a wrong key at startup is fatal, credentials would silently
			// vanish otherwise
			return fmt.Errorf("open security store: %w", err)
		}
	}

	if conf.Cache.MaxAgeDays > 0 {
		if removed, err := a.cache.Clean(cache.CleanFilter{OlderThanDays: conf.Cache.MaxAgeDays}); err == nil {
			logrus.Debugf("Expired %d stale cache entries", removed)
		}
	}
	return nil
}

func (a *app) initServices() {
	conf := config.AppConfig
	a.limiter = ratelimit.NewRegistry()
	// identity service default honours the public server's 1 req/s policy
	a.limiter.Register(meta.ServiceMusicBrainz, time.Second)
	for name, service := range conf.Services {
		if service.RateLimitMs > 0 {
			a.limiter.Register(name, time.Duration(service.RateLimitMs)*time.Millisecond)
		}
	}
	a.bus = eventbus.New()
}

// secret resolves a credential: explicit config wins, then the security
// store.
func (a *app) secret(configured, name string) string {
	if configured != "" {
		return configured
	}
	if a.secrets == nil {
		return ""
	}
	value, err := a.secrets.Get(name)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			logrus.Warningf("read secret %s: %v", name, err)
		}
		return ""
	}
	return string(value)
}

func (a *app) initPlayers() error {
	conf := config.AppConfig
	a.audio = controller.New(a.bus)

	for name, declared := range conf.Players {
		c, err := buildPlayer(name, declared)
		if err != nil {
			return fmt.Errorf("configure player '%s': %w", name, err)
		}
		if err = a.audio.Register(c); err != nil {
			return fmt.Errorf("register player '%s': %w", name, err)
		}
	}
	return nil
}

func buildPlayer(name string, declared config.Player) (interfaces.MediaController, error) {
	switch declared.Type {
	case players.KindMPD:
		host := declared.Host
		if host == "" {
			host = "localhost"
		}
		port := declared.Port
		if port == 0 {
			port = 6600
		}
		return players.NewMPD(name, host, port), nil

	case players.KindLMS:
		if declared.Host == "" || declared.PlayerID == "" {
			return nil, fmt.Errorf("%w: lms needs host and player_id", interfaces.ErrInvalidArgument)
		}
		port := declared.Port
		if port == 0 {
			port = 9000
		}
		return players.NewLMS(name, declared.Host, port, declared.PlayerID), nil

	case players.KindLibrespot:
		return players.NewLibrespot(name, declared.EventPipe, declared.Address, declared.SupportsAPIEvents), nil

	case players.KindShairport:
		return players.NewShairport(name, declared.EventPipe, declared.Address, declared.SupportsAPIEvents), nil

	case players.KindMPRIS:
		return players.NewMPRIS(name, declared.BusName)

	case players.KindGeneric:
		caps := interfaces.NewCapabilities()
		for _, capName := range declared.Capabilities {
			capability, ok := interfaces.ParseCapability(capName)
			if !ok {
				return nil, fmt.Errorf("%w: unknown capability '%s'", interfaces.ErrInvalidArgument, capName)
			}
			caps[capability] = true
		}
		return players.NewGeneric(name, caps, models.ParsePlayerState(declared.InitialState)), nil
	}
	return nil, fmt.Errorf("%w: unknown player type '%s'", interfaces.ErrInvalidArgument, declared.Type)
}

func (a *app) initBoundary() error {
	conf := config.AppConfig

	// enrichment
	resolver := meta.NewMusicBrainz(a.limiter, 0)
	providers := []meta.ArtistInfoProvider{}
	if conf.ServiceEnabled(meta.ServiceFanartTV) {
		key := a.secret(conf.Service(meta.ServiceFanartTV).APIKey, "fanarttv_api_key")
		if provider := meta.NewFanartTV(a.limiter, key, 0); provider.Enabled() {
			providers = append(providers, provider)
		}
	}
	if conf.ServiceEnabled(meta.ServiceTheAudioDB) {
		key := a.secret(conf.Service(meta.ServiceTheAudioDB).APIKey, "theaudiodb_api_key")
		if provider := meta.NewTheAudioDB(a.limiter, key, 0); provider.Enabled() {
			providers = append(providers, provider)
		}
	}
	if conf.ServiceEnabled(meta.ServiceLastFM) {
		key := a.secret(conf.Service(meta.ServiceLastFM).APIKey, "lastfm_api_key")
		if provider := meta.NewLastFM(a.limiter, key, 0); provider.Enabled() {
			providers = append(providers, provider)
		}
	}
	a.enricher = meta.NewWorker(a.bus, a.cache, resolver, providers, 0)

	// cover art
	spotifyToken := func() string {
		return a.secret(conf.Service("spotify").Token, "spotify_token")
	}
	resolve := func(name string) []string {
		identity := struct {
			MBIDs []string `json:"mbids"`
		}{}
		if ok, err := a.cache.Get(cache.Key(cache.PrefixArtistMBID, name), &identity); err == nil && ok {
			return identity.MBIDs
		}
		return nil
	}
	covers := coverart.NewAggregator()
	if conf.ServiceEnabled(meta.ServiceFanartTV) {
		covers.Register(coverart.NewFanartCovers(a.limiter,
			a.secret(conf.Service(meta.ServiceFanartTV).APIKey, "fanarttv_api_key"), resolve))
	}
	if conf.ServiceEnabled(meta.ServiceTheAudioDB) {
		covers.Register(coverart.NewAudioDBCovers(a.limiter,
			a.secret(conf.Service(meta.ServiceTheAudioDB).APIKey, "theaudiodb_api_key")))
	}
	if conf.ServiceEnabled("spotify") {
		covers.Register(coverart.NewSpotifyCovers(a.limiter, spotifyToken))
	}
	covers.Register(coverart.NewLocalFiles(conf.General.MusicDir, conf.Cache.ImageCachePath))
	measurer := coverart.NewMeasurer(a.cache)

	// favourites
	lastfmConf := conf.Service(meta.ServiceLastFM)
	sign := func(params url.Values) string {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		payload := ""
		for _, k := range keys {
			payload += k + params.Get(k)
		}
		payload += a.secret(lastfmConf.APISecret, "lastfm_api_secret")
		return fmt.Sprintf("%x", md5.Sum([]byte(payload)))
	}
	favs := favourites.NewAggregator(
		favourites.NewLocal(a.settings),
		favourites.NewLastFM(a.limiter,
			a.secret(lastfmConf.APIKey, "lastfm_api_key"),
			a.secret(lastfmConf.SessionKey, "lastfm_session_key"),
			lastfmConf.Username, sign),
		favourites.NewSpotify(a.limiter, spotifyToken),
	)

	var volumeControl *volume.Control
	if conf.Volume.Enable {
		volumeControl = volume.New(volume.NewSoftvol(conf.Volume.InitialPercent), a.bus)
	}

	a.server = api.NewServer(conf.General.ListenAddr, config.Version,
		a.audio, a.bus, a.cache, covers, measurer, favs, volumeControl)

	if err := a.enricher.Start(); err != nil {
		return fmt.Errorf("start enrichment worker: %w", err)
	}
	if err := a.audio.Start(); err != nil {
		return fmt.Errorf("start players: %w", err)
	}
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

// stop tears the application down in reverse startup order.
func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			logrus.Errorf("stop http server: %v", err)
		}
	}
	if a.audio != nil {
		a.audio.Stop()
	}
	if a.enricher != nil {
		if err := a.enricher.Stop(); err != nil {
			logrus.Debugf("stop enrichment worker: %v", err)
		}
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if err := a.settings.Close(); err != nil {
		logrus.Errorf("close settings store: %v", err)
	}
	if err := a.cache.Close(); err != nil {
		logrus.Errorf("close attribute cache: %v", err)
	}
}
