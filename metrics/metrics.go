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

// Package metrics exposes prometheus collectors for the kernel.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsPublished counts events published to the bus by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocontrol",
		Name:      "events_published_total",
		Help:      "Events published to the event bus.",
	}, []string{"type"})

	// EventsDropped counts events dropped from subscriber queues.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocontrol",
		Name:      "events_dropped_total",
		Help:      "Events dropped due to subscriber queue overflow.",
	}, []string{"subscriber"})

	// CommandsDispatched counts controller commands by player and result.
	CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocontrol",
		Name:      "commands_dispatched_total",
		Help:      "Commands dispatched to controllers.",
	}, []string{"player", "command", "result"})

	// ProviderCalls counts external provider HTTP calls by provider and result.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocontrol",
		Name:      "provider_calls_total",
		Help:      "External metadata provider calls.",
	}, []string{"provider", "result"})

	// CacheLookups counts attribute cache lookups by outcome (hit, miss,
	// negative, expired).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "audiocontrol",
		Name:      "cache_lookups_total",
		Help:      "Attribute cache lookups by outcome.",
	}, []string{"outcome"})
)

// Handler returns the http handler serving the prometheus endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
