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

// Package favourites unions the favourite flag over multiple providers:
// the local settings store, the scrobble service and the streaming service.
package favourites

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
)

// Provider is one favourite source. Enabled means configured and reachable
// in principle, active means authenticated and usable right now.
type Provider interface {
	Name() string
	IsEnabled() bool
	IsActive() bool
	IsFavourite(ctx context.Context, artist, title string) (bool, error)
	// Add marks a favourite. Read-only providers return ErrReadOnly.
	Add(ctx context.Context, artist, title string) error
	// Remove clears a favourite. Read-only providers return ErrReadOnly.
	Remove(ctx context.Context, artist, title string) error
}

// Check is an is-favourite response with the providers that reported true.
type Check struct {
	Favourite bool     `json:"favourite"`
	Providers []string `json:"providers,omitempty"`
}

// WriteResult reports one provider's outcome of add/remove.
type WriteResult struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

// Aggregator fans favourite operations out over all active providers.
type Aggregator struct {
	providers []Provider
}

// NewAggregator creates an aggregator over providers.
func NewAggregator(providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers}
}

// IsFavourite returns true when any active provider reports true, listing
// those that did.
func (a *Aggregator) IsFavourite(ctx context.Context, artist, title string) Check {
	check := Check{}
	for _, provider := range a.providers {
		if !provider.IsActive() {
			continue
		}
		fav, err := provider.IsFavourite(ctx, artist, title)
		if err != nil {
			logrus.Warningf("Favourite check on %s: %v", provider.Name(), err)
			continue
		}
		if fav {
			check.Favourite = true
			check.Providers = append(check.Providers, provider.Name())
		}
	}
	return check
}

// Add marks a favourite on every active writable provider. Read-only
// providers are skipped silently.
func (a *Aggregator) Add(ctx context.Context, artist, title string) []WriteResult {
	return a.write(ctx, artist, title, Provider.Add)
}

// Remove clears a favourite on every active writable provider.
func (a *Aggregator) Remove(ctx context.Context, artist, title string) []WriteResult {
	return a.write(ctx, artist, title, Provider.Remove)
}

func (a *Aggregator) write(ctx context.Context, artist, title string,
	op func(Provider, context.Context, string, string) error) []WriteResult {

	results := []WriteResult{}
	for _, provider := range a.providers {
		if !provider.IsActive() {
			continue
		}
		err := op(provider, ctx, artist, title)
		if errors.Is(err, interfaces.ErrReadOnly) {
			continue
		}
		result := WriteResult{Provider: provider.Name(), Success: err == nil}
		if err != nil {
			result.Message = err.Error()
			logrus.Warningf("Favourite write on %s: %v", provider.Name(), err)
		}
		results = append(results, result)
	}
	return results
}

// Providers lists registered providers with their state, for diagnostics.
func (a *Aggregator) Providers() []map[string]interface{} {
	out := []map[string]interface{}{}
	for _, provider := range a.providers {
		out = append(out, map[string]interface{}{
			"name":    provider.Name(),
			"enabled": provider.IsEnabled(),
			"active":  provider.IsActive(),
		})
	}
	return out
}
