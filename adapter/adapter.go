// Package adapter bridges the virtual bus to the transport interfaces real
// drivers are written against, so driver code runs unmodified on simulated
// hardware: a raw register-pointer adapter, a periph.io bus and a gobot
// connector.
package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/bus"
)

var _ i2csim.I2CBus = (*Virtual)(nil)

// Virtual exposes a bus through the register-pointer protocol real I2C
// slaves speak: a write sets the device's internal register pointer (first
// byte) and optionally streams payload after it, a read streams from the
// current pointer. The pointer auto-increments on every byte transferred,
// per address.
type Virtual struct {
	bus *bus.Bus

	mx       sync.Mutex
	pointers map[byte]byte
}

// NewVirtual wraps the bus in a register-pointer adapter.
func NewVirtual(b *bus.Bus) *Virtual {
	return &Virtual{bus: b, pointers: make(map[byte]byte)}
}

// WriteToAddr sets the register pointer to buffer[0] and writes the
// remaining bytes to consecutive registers. An empty buffer probes the
// address without transferring data.
func (v *Virtual) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	v.mx.Lock()
	defer v.mx.Unlock()
	if len(buffer) == 0 {
		_, err := v.bus.Device(address)
		return err
	}
	reg := buffer[0]
	v.pointers[address] = reg
	payload := buffer[1:]
	if len(payload) == 0 {
		return nil
	}
	if err := v.bus.WriteBurst(ctx, address, reg, payload); err != nil {
		return fmt.Errorf("write to %#02x failed: %w", address, err)
	}
	v.pointers[address] = reg + byte(len(payload))
	return nil
}

// ReadFromAddr fills buffer from consecutive registers starting at the
// address's current register pointer.
func (v *Virtual) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	v.mx.Lock()
	defer v.mx.Unlock()
	if len(buffer) == 0 {
		_, err := v.bus.Device(address)
		return err
	}
	reg := v.pointers[address]
	if err := v.bus.ReadBurst(ctx, address, reg, buffer); err != nil {
		return fmt.Errorf("bus read from %#02x failed: %w", address, err)
	}
	v.pointers[address] = reg + byte(len(buffer))
	return nil
}

// Release clears all register pointers, like a stop condition releasing the
// bus.
func (v *Virtual) Release(ctx context.Context) error {
	v.mx.Lock()
	defer v.mx.Unlock()
	clear(v.pointers)
	return nil
}
