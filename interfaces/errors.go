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

package interfaces

import "errors"

// Kernel error kinds. Callers wrap these with context and check with errors.Is.
var (
	// ErrNotFound occurs when no controller, cache entry or secret exists
	// with the given name.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedCapability occurs when a controller lacks the requested
	// operation.
	ErrUnsupportedCapability = errors.New("unsupported capability")
	// ErrInvalidArgument occurs on malformed payloads and out-of-range values.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransport occurs on backend connection and provider HTTP failures.
	ErrTransport = errors.New("transport error")
	// ErrTimeout occurs when an operation exceeds its deadline. Surfaces as a
	// transport error at the boundary.
	ErrTimeout = errors.New("timeout")
	// ErrBackend occurs when the backend itself reported a failure.
	ErrBackend = errors.New("backend error")
	// ErrNotInitialised occurs when a store is used while nil or opened
	// without a configured path.
	ErrNotInitialised = errors.New("not initialised")
	// ErrDecryptionFailed occurs on tampered data or a wrong master key.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrReadOnly occurs when a write is requested from a read-only provider.
	ErrReadOnly = errors.New("read only")
)
