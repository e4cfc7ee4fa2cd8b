/*
 * Copyright 2025 Tero Vierimaa
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package task runs long-lived background loops: controller transports,
// bus delivery, enrichment workers.
package task

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Tasker can be run on background.
type Tasker interface {
	Start() error
	Stop() error
}

// Task is a common base for background loops. Embed it, call SetLoop with the
// loop function, then Start. The loop must return when StopChan fires.
type Task struct {
	// Name of the task, for logging purposes
	Name string

	lock        sync.RWMutex
	initialized bool
	running     bool
	chanStop    chan struct{}
	done        chan struct{}
	loop        func()
}

// IsRunning returns whether task is running or not.
func (t *Task) IsRunning() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.running
}

// StopChan returns the channel that closes when task stop is requested.
func (t *Task) StopChan() <-chan struct{} {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.chanStop
}

// SetLoop sets the loop function. Must be called before Start.
func (t *Task) SetLoop(loop func()) {
	t.loop = loop
	t.initialized = true
}

// Start starts the task. Starting an already-running or uninitialized task
// returns an error.
func (t *Task) Start() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.running {
		return fmt.Errorf("task '%s' already running", t.Name)
	}
	if !t.initialized || t.loop == nil {
		return fmt.Errorf("task '%s' has no loop function defined", t.Name)
	}

	t.chanStop = make(chan struct{})
	t.done = make(chan struct{})
	t.running = true
	go t.run()
	logrus.Tracef("Task %s started", t.Name)
	return nil
}

// Stop stops the task and waits for the loop to return. Stopping a stopped
// task returns an error.
func (t *Task) Stop() error {
	t.lock.Lock()
	if !t.running {
		t.lock.Unlock()
		return fmt.Errorf("task '%s' not running", t.Name)
	}
	logrus.Tracef("Stopping task: %s", t.Name)
	close(t.chanStop)
	done := t.done
	t.lock.Unlock()

	<-done
	return nil
}

func (t *Task) run() {
	t.loop()
	t.lock.Lock()
	t.running = false
	t.lock.Unlock()
	close(t.done)
	logrus.Tracef("Task %s stopped", t.Name)
}
