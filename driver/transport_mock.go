package driver

import (
	"context"
)

// WriteBehaviorFunc defines the function signature for transport writes.
type WriteBehaviorFunc func(ctx context.Context, address byte, buffer []byte) error

// ReadBehaviorFunc defines the function signature for transport reads.
type ReadBehaviorFunc func(ctx context.Context, address byte, buffer []byte) error

// MockTransport is a transport implementation driven by behavior functions,
// for driver tests that need to script exact byte sequences or failures
// without a bus behind them.
type MockTransport struct {
	writeBehavior WriteBehaviorFunc
	readBehavior  ReadBehaviorFunc
}

// NewMockTransport creates a mock transport with the given behaviors. Either
// behavior may be nil, in which case the operation succeeds without effect.
func NewMockTransport(write WriteBehaviorFunc, read ReadBehaviorFunc) *MockTransport {
	return &MockTransport{writeBehavior: write, readBehavior: read}
}

func (m *MockTransport) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if m.writeBehavior == nil {
		return nil
	}
	return m.writeBehavior(ctx, address, buffer)
}

func (m *MockTransport) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if m.readBehavior == nil {
		return nil
	}
	return m.readBehavior(ctx, address, buffer)
}

func (m *MockTransport) Release(ctx context.Context) error {
	return nil
}

// NewRegisterMockTransport returns a mock transport backed by a flat
// register file with pointer auto-increment, convenient when a test only
// needs plausible register semantics.
func NewRegisterMockTransport(init map[byte]byte) *MockTransport {
	regs := make(map[byte]byte, len(init))
	for k, v := range init {
		regs[k] = v
	}
	var pointer byte
	return NewMockTransport(
		func(ctx context.Context, address byte, buffer []byte) error {
			if len(buffer) == 0 {
				return nil
			}
			pointer = buffer[0]
			for _, v := range buffer[1:] {
				regs[pointer] = v
				pointer++
			}
			return nil
		},
		func(ctx context.Context, address byte, buffer []byte) error {
			for i := range buffer {
				buffer[i] = regs[pointer]
				pointer++
			}
			return nil
		},
	)
}
