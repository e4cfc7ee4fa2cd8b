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

// Package eventbus distributes player events from controllers to subscribers.
// Delivery is best-effort: each subscriber owns a bounded queue and a slow
// subscriber loses events by the drop policy instead of blocking publishers.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"tryffel.net/go/audiocontrol/interfaces"
	"tryffel.net/go/audiocontrol/metrics"
)

// DefaultQueueSize is the per-subscriber queue depth.
const DefaultQueueSize = 128

// Bus is a process-wide typed publish-subscribe channel. Publishers never
// block: Publish enqueues to each matching subscriber and returns. Per-source
// ordering is preserved, cross-source ordering is not.
type Bus struct {
	lock        sync.RWMutex
	subscribers map[string]*Subscription
	queueSize   int
	closed      bool
}

// New creates an event bus with the default per-subscriber queue size.
func New() *Bus {
	return NewWithQueueSize(DefaultQueueSize)
}

// NewWithQueueSize creates an event bus with the given queue depth.
func NewWithQueueSize(size int) *Bus {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Bus{
		subscribers: map[string]*Subscription{},
		queueSize:   size,
	}
}

// Subscribe registers a new subscriber with the given filter. Returned
// subscription delivers events on its Events channel until Unsubscribe or
// bus Close.
func (b *Bus) Subscribe(name string, filter Filter) *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		name:   name,
		filter: filter,
		max:    b.queueSize,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		out:    make(chan interfaces.Event),
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		close(sub.stop)
		close(sub.out)
		return sub
	}
	b.subscribers[sub.id] = sub
	go sub.deliver()
	logrus.Debugf("Event bus: subscriber '%s' (%s) registered", name, sub.id)
	return sub
}

// Unsubscribe removes a subscription and stops its delivery.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.lock.Lock()
	_, ok := b.subscribers[sub.id]
	delete(b.subscribers, sub.id)
	b.lock.Unlock()
	if ok {
		sub.close()
		logrus.Debugf("Event bus: subscriber '%s' (%s) removed", sub.name, sub.id)
	}
}

// Publish fans out event to every subscriber whose filter matches. Never
// blocks on subscriber consumption.
func (b *Bus) Publish(event interfaces.Event) {
	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	b.lock.RLock()
	defer b.lock.RUnlock()
	for _, sub := range b.subscribers {
		if sub.Filter().Matches(event) {
			sub.enqueue(event)
		}
	}
}

// Close stops every subscription. The bus accepts no new subscribers
// afterwards.
func (b *Bus) Close() {
	b.lock.Lock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.subscribers = map[string]*Subscription{}
	b.closed = true
	b.lock.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
