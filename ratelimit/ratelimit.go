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

// Package ratelimit gates outgoing provider calls to a per-service minimum
// interval. The discipline is cooperative and in-process, callers invoke Wait
// immediately before their HTTP request.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultInterval applies to services that never registered an interval.
const DefaultInterval = 500 * time.Millisecond

// Registry maps service names to limiters. A burst-1 limiter makes consecutive
// Wait returns for one service at least the registered interval apart.
type Registry struct {
	lock     sync.Mutex
	services map[string]*rate.Limiter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: map[string]*rate.Limiter{}}
}

// Register sets the minimum interval for service. Interval <= 0 falls back to
// the default. Re-registering replaces the limiter.
func (r *Registry) Register(service string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r.lock.Lock()
	r.services[service] = rate.NewLimiter(rate.Every(interval), 1)
	r.lock.Unlock()
	logrus.Debugf("Rate limit for %s: %v", service, interval)
}

// Wait suspends the caller until enough time has passed since the previous
// call for service. Cancelling ctx aborts the wait.
func (r *Registry) Wait(ctx context.Context, service string) error {
	r.lock.Lock()
	limiter, ok := r.services[service]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(DefaultInterval), 1)
		r.services[service] = limiter
	}
	r.lock.Unlock()
	return limiter.Wait(ctx)
}
