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

// Package volume adapts a hardware volume control and mirrors its changes to
// the event bus, so external hardware buttons propagate to clients.
package volume

import (
	"fmt"
	"sync"

	"tryffel.net/go/audiocontrol/interfaces"
)

// Info describes the bound control.
type Info struct {
	Name string `json:"name"`
	// MinDB and MaxDB bound the decibel range when the hardware reports one.
	MinDB float64 `json:"min_db,omitempty"`
	MaxDB float64 `json:"max_db,omitempty"`
	// RawSteps is the raw register range, 0 when not applicable.
	RawSteps int `json:"raw_steps,omitempty"`
}

// State is the current volume.
type State struct {
	Percent  int     `json:"percent"`
	Decibels float64 `json:"decibels,omitempty"`
	Muted    bool    `json:"muted"`
}

// Hardware is the adapter a concrete control implements.
type Hardware interface {
	Info() Info
	Get() (State, error)
	SetPercent(percent int) error
	SetDecibels(db float64) error
	SetRaw(raw int) error
	SetMute(muted bool) error
	// Watch registers a callback for changes originating at the hardware,
	// e.g. rotary encoders. May be a no-op.
	Watch(fn func(State))
}

// Control is the optional singleton bound to one hardware adapter.
type Control struct {
	lock sync.Mutex
	hw   Hardware
	bus  interfaces.EventPublisher
}

// New binds hardware to the bus. Hardware-originated changes are published as
// volume events.
func New(hw Hardware, bus interfaces.EventPublisher) *Control {
	c := &Control{hw: hw, bus: bus}
	hw.Watch(func(state State) {
		c.publish(state)
	})
	return c
}

// Info returns the adapter description.
func (c *Control) Info() Info {
	return c.hw.Info()
}

// State returns the current volume.
func (c *Control) State() (State, error) {
	return c.hw.Get()
}

// SetPercent sets volume as a percentage.
func (c *Control) SetPercent(percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d out of range", interfaces.ErrInvalidArgument, percent)
	}
	if err := c.hw.SetPercent(percent); err != nil {
		return err
	}
	c.publishCurrent()
	return nil
}

// SetDecibels sets volume in decibels.
func (c *Control) SetDecibels(db float64) error {
	info := c.hw.Info()
	if info.MinDB == 0 && info.MaxDB == 0 {
		return fmt.Errorf("%w: control has no decibel range", interfaces.ErrUnsupportedCapability)
	}
	if db < info.MinDB || db > info.MaxDB {
		return fmt.Errorf("%w: %.1f dB out of range", interfaces.ErrInvalidArgument, db)
	}
	if err := c.hw.SetDecibels(db); err != nil {
		return err
	}
	c.publishCurrent()
	return nil
}

// SetRaw sets the raw register value.
func (c *Control) SetRaw(raw int) error {
	if err := c.hw.SetRaw(raw); err != nil {
		return err
	}
	c.publishCurrent()
	return nil
}

// Increase raises volume by amount percent points, clamped at 100.
func (c *Control) Increase(amount int) error {
	return c.step(amount)
}

// Decrease lowers volume by amount percent points, clamped at 0.
func (c *Control) Decrease(amount int) error {
	return c.step(-amount)
}

func (c *Control) step(delta int) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	state, err := c.hw.Get()
	if err != nil {
		return err
	}
	target := state.Percent + delta
	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}
	if err := c.hw.SetPercent(target); err != nil {
		return err
	}
	c.publishCurrent()
	return nil
}

// ToggleMute flips the mute flag.
func (c *Control) ToggleMute() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	state, err := c.hw.Get()
	if err != nil {
		return err
	}
	if err := c.hw.SetMute(!state.Muted); err != nil {
		return err
	}
	c.publishCurrent()
	return nil
}

func (c *Control) publishCurrent() {
	state, err := c.hw.Get()
	if err != nil {
		return
	}
	c.publish(state)
}

func (c *Control) publish(state State) {
	c.bus.Publish(interfaces.Event{
		Type: interfaces.EventVolumeChanged,
		Source: interfaces.Source{
			PlayerID:   c.hw.Info().Name,
			PlayerName: "volume",
			Kind:       "volume",
		},
		Volume: state.Percent,
		Muted:  state.Muted,
	})
}

// Softvol is an in-memory volume used when no hardware control is bound but
// clients still expect the volume surface.
type Softvol struct {
	lock    sync.Mutex
	percent int
	muted   bool
	watch   func(State)
}

// NewSoftvol creates a software volume starting at percent.
func NewSoftvol(percent int) *Softvol {
	return &Softvol{percent: percent}
}

// Info implements Hardware.
func (s *Softvol) Info() Info {
	return Info{Name: "softvol"}
}

// Get implements Hardware.
func (s *Softvol) Get() (State, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return State{Percent: s.percent, Muted: s.muted}, nil
}

// SetPercent implements Hardware.
func (s *Softvol) SetPercent(percent int) error {
	s.lock.Lock()
	s.percent = percent
	s.lock.Unlock()
	return nil
}

// SetDecibels implements Hardware. Softvol has no decibel scale.
func (s *Softvol) SetDecibels(float64) error {
	return fmt.Errorf("%w: softvol has no decibel scale", interfaces.ErrUnsupportedCapability)
}

// SetRaw implements Hardware.
func (s *Softvol) SetRaw(raw int) error {
	return s.SetPercent(raw)
}

// SetMute implements Hardware.
func (s *Softvol) SetMute(muted bool) error {
	s.lock.Lock()
	s.muted = muted
	s.lock.Unlock()
	return nil
}

// Watch implements Hardware. Softvol changes only through the control, the
// callback is kept for symmetry.
func (s *Softvol) Watch(fn func(State)) {
	s.lock.Lock()
	s.watch = fn
	s.lock.Unlock()
}
