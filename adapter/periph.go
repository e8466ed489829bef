package adapter

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2csim/bus"
)

var _ i2c.Bus = (*PeriphBus)(nil)

// PeriphBus presents the virtual bus as a periph.io i2c.Bus so periph
// device drivers can be exercised against simulated hardware.
type PeriphBus struct {
	bus *bus.Bus
	v   *Virtual
}

// NewPeriphBus wraps the bus for periph.io drivers.
func NewPeriphBus(b *bus.Bus) *PeriphBus {
	return &PeriphBus{bus: b, v: NewVirtual(b)}
}

func (p *PeriphBus) String() string {
	return p.bus.Name()
}

// Tx performs a write-then-read transaction: w sets the register pointer
// and optional payload, r is filled from the resulting pointer position.
func (p *PeriphBus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("address %#04x exceeds 7-bit range", addr)
	}
	ctx := context.Background()
	if len(w) > 0 {
		if err := p.v.WriteToAddr(ctx, byte(addr), w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return p.v.ReadFromAddr(ctx, byte(addr), r)
	}
	return nil
}

// SetSpeed maps the clock frequency onto the simulated per-transaction
// latency: nine clock cycles per transferred byte (eight bits plus ACK).
func (p *PeriphBus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("invalid bus frequency %s", f)
	}
	p.bus.SetLatency(9 * f.Period())
	return nil
}

// Close releases the adapter's register pointers.
func (p *PeriphBus) Close() error {
	return p.v.Release(context.Background())
}
