// Package fifo implements the fixed-capacity sample buffer of a simulated
// sensor. It mirrors hardware semantics: writes past capacity are dropped
// and latch a sticky overflow flag instead of failing the producer.
package fifo

// Capacity is the buffer size in bytes, matching the MPU-6050's 1024-byte
// FIFO.
const Capacity = 1024

// Buffer is a circular byte buffer. It carries no lock of its own: it is
// owned by a single device and only reached from code that already holds
// the device's guard.
type Buffer struct {
	buf      [Capacity]byte
	head     int
	tail     int
	count    int
	enabled  bool
	overflow bool
}

// Push appends one byte. When the buffer is full the byte is dropped, the
// sticky overflow flag is set and Push reports false.
func (b *Buffer) Push(v byte) bool {
	if b.count >= Capacity {
		b.overflow = true
		return false
	}
	b.buf[b.head] = v
	b.head = (b.head + 1) % Capacity
	b.count++
	return true
}

// Pop removes and returns the oldest byte. The second return value is false
// when the buffer is empty.
func (b *Buffer) Pop() (byte, bool) {
	if b.count == 0 {
		return 0, false
	}
	v := b.buf[b.tail]
	b.tail = (b.tail + 1) % Capacity
	b.count--
	return v, true
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.count
}

// Overflow reports whether a push was dropped since the last Reset or
// enable.
func (b *Buffer) Overflow() bool {
	return b.overflow
}

// Enabled reports whether automatic sample appends are active.
func (b *Buffer) Enabled() bool {
	return b.enabled
}

// SetEnabled toggles automatic appends. Enabling clears all state for a
// fresh start; disabling preserves buffered bytes so they can still be
// drained.
func (b *Buffer) SetEnabled(enabled bool) {
	if enabled && !b.enabled {
		b.Reset()
	}
	b.enabled = enabled
}

// Reset clears indices, count and the overflow flag.
func (b *Buffer) Reset() {
	b.head = 0
	b.tail = 0
	b.count = 0
	b.overflow = false
}
