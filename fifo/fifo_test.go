package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_PushPop(t *testing.T) {
	var b Buffer
	assert.Equal(t, 0, b.Len())

	require.True(t, b.Push(0x11))
	require.True(t, b.Push(0x22))
	assert.Equal(t, 2, b.Len())

	v, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, byte(0x11), v)
	v, ok = b.Pop()
	require.True(t, ok)
	assert.Equal(t, byte(0x22), v)

	_, ok = b.Pop()
	assert.False(t, ok)
}

func TestBuffer_WrapAround(t *testing.T) {
	var b Buffer
	// fill, drain half, fill again to force index wrap
	for i := 0; i < Capacity; i++ {
		require.True(t, b.Push(byte(i)))
	}
	for i := 0; i < Capacity/2; i++ {
		v, ok := b.Pop()
		require.True(t, ok)
		assert.Equal(t, byte(i), v)
	}
	for i := 0; i < Capacity/2; i++ {
		require.True(t, b.Push(byte(i)))
	}
	assert.Equal(t, Capacity, b.Len())
}

func TestBuffer_OverflowSticky(t *testing.T) {
	var b Buffer
	for i := 0; i < Capacity; i++ {
		require.True(t, b.Push(0xAA))
	}
	assert.False(t, b.Overflow())

	// dropped writes latch overflow and never exceed capacity
	assert.False(t, b.Push(0xBB))
	assert.True(t, b.Overflow())
	assert.Equal(t, Capacity, b.Len())

	// draining does not clear the flag
	_, ok := b.Pop()
	require.True(t, ok)
	assert.True(t, b.Overflow())
	require.True(t, b.Push(0xCC))
	assert.True(t, b.Overflow())

	b.Reset()
	assert.False(t, b.Overflow())
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_EnableClearsState(t *testing.T) {
	var b Buffer
	b.Push(0x01)
	b.Push(0x02)

	b.SetEnabled(true)
	assert.True(t, b.Enabled())
	assert.Equal(t, 0, b.Len(), "enabling starts from a clean buffer")

	b.Push(0x03)
	b.SetEnabled(false)
	assert.False(t, b.Enabled())
	assert.Equal(t, 1, b.Len(), "disabling preserves buffered bytes")

	// re-enabling while already enabled must not clear
	b.SetEnabled(true)
	b.Push(0x04)
	b.SetEnabled(true)
	assert.Equal(t, 1, b.Len())
}
