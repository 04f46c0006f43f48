//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"reflect"
	"sync"
)

type listenerEntry struct {
	fn   Listener
	once bool
}

// MemoryEmitter is an in-process Emitter. Listeners registered with Once are
// dropped after their first invocation. Off removes listeners by function
// identity.
type MemoryEmitter struct {
	mu        sync.Mutex
	listeners map[string][]listenerEntry
}

func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{listeners: make(map[string][]listenerEntry)}
}

func (e *MemoryEmitter) On(event string, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listenerEntry{fn: fn})
}

func (e *MemoryEmitter) Once(event string, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listenerEntry{fn: fn, once: true})
}

func (e *MemoryEmitter) Off(event string, fn Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ptr := reflect.ValueOf(fn).Pointer()
	entries := e.listeners[event]
	for i, entry := range entries {
		if reflect.ValueOf(entry.fn).Pointer() == ptr {
			e.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

func (e *MemoryEmitter) Emit(event string, args ...any) {
	e.mu.Lock()
	entries := e.listeners[event]
	kept := entries[:0]
	fns := make([]Listener, 0, len(entries))
	for _, entry := range entries {
		fns = append(fns, entry.fn)
		if !entry.once {
			kept = append(kept, entry)
		}
	}
	e.listeners[event] = kept
	e.mu.Unlock()

	// Listeners run outside the lock so they may re-subscribe.
	for _, fn := range fns {
		fn(args...)
	}
}

func (e *MemoryEmitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

func (e *MemoryEmitter) Listeners(event string) []Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Listener, 0, len(e.listeners[event]))
	for _, entry := range e.listeners[event] {
		out = append(out, entry.fn)
	}
	return out
}

func (e *MemoryEmitter) RemoveAllListeners(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, event)
}
