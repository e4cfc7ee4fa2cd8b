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

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consecutive waits for one service are at least the registered interval
// apart.
func TestWaitEnforcesInterval(t *testing.T) {
	registry := NewRegistry()
	interval := 50 * time.Millisecond
	registry.Register("svc", interval)

	ctx := context.Background()
	var last time.Time
	for i := 0; i < 3; i++ {
		require.NoError(t, registry.Wait(ctx, "svc"))
		now := time.Now()
		if i > 0 {
			assert.GreaterOrEqual(t, now.Sub(last), interval-time.Millisecond,
				"calls %d and %d too close", i-1, i)
		}
		last = now
	}
}

func TestServicesAreIndependent(t *testing.T) {
	registry := NewRegistry()
	registry.Register("slow", time.Second)
	registry.Register("fast", time.Millisecond)

	ctx := context.Background()
	require.NoError(t, registry.Wait(ctx, "slow"))

	start := time.Now()
	require.NoError(t, registry.Wait(ctx, "fast"))
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"one service's interval must not delay another")
}

func TestUnregisteredServiceGetsDefault(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	require.NoError(t, registry.Wait(ctx, "unknown"))
	start := time.Now()
	require.NoError(t, registry.Wait(ctx, "unknown"))
	assert.GreaterOrEqual(t, time.Since(start), DefaultInterval-5*time.Millisecond)
}

func TestWaitCancellable(t *testing.T) {
	registry := NewRegistry()
	registry.Register("svc", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, registry.Wait(ctx, "svc"))

	done := make(chan error, 1)
	go func() {
		done <- registry.Wait(ctx, "svc")
	}()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled wait did not return")
	}
}
