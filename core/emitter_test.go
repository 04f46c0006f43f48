package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryEmitterOnceAndOff(t *testing.T) {
	e := NewMemoryEmitter()

	var onCalls, onceCalls int
	onFn := Listener(func(args ...any) { onCalls++ })
	onceFn := Listener(func(args ...any) { onceCalls++ })

	e.On("block", onFn)
	e.Once("block", onceFn)
	assert.Equal(t, 2, e.ListenerCount("block"))
	assert.Len(t, e.Listeners("block"), 2)

	e.Emit("block", uint64(1))
	e.Emit("block", uint64(2))
	assert.Equal(t, 2, onCalls)
	assert.Equal(t, 1, onceCalls)
	assert.Equal(t, 1, e.ListenerCount("block"))

	e.Off("block", onFn)
	assert.Equal(t, 0, e.ListenerCount("block"))

	// Emitting with no listeners is a no-op.
	e.Emit("block")
	assert.Equal(t, 2, onCalls)
}

func TestMemoryEmitterRemoveAllListeners(t *testing.T) {
	e := NewMemoryEmitter()
	e.On("block", func(args ...any) {})
	e.On("pending", func(args ...any) {})

	e.RemoveAllListeners("block")
	assert.Equal(t, 0, e.ListenerCount("block"))
	assert.Equal(t, 1, e.ListenerCount("pending"))
}

func TestMemoryEmitterPassesArguments(t *testing.T) {
	e := NewMemoryEmitter()

	var got []any
	e.On("log", func(args ...any) { got = args })
	e.Emit("log", "0xabc", uint64(7))
	assert.Equal(t, []any{"0xabc", uint64(7)}, got)
}
