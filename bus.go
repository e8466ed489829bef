package i2csim

import (
	"context"
)

// RegisterBus is the transport contract exposed to drivers and test
// harnesses. It replaces a real hardware I2C adapter call: every operation
// addresses one device by its 7-bit address and one register on that device.
type RegisterBus interface {
	ReadByte(ctx context.Context, addr byte, reg byte) (byte, error)
	WriteByte(ctx context.Context, addr byte, reg byte, value byte) error
	// ReadBurst fills buf with len(buf) sequential register reads starting
	// at reg. A failure on byte k aborts the remaining bytes; the returned
	// error is a *BurstError reporting the partial count consumed.
	ReadBurst(ctx context.Context, addr byte, reg byte, buf []byte) error
	WriteBurst(ctx context.Context, addr byte, reg byte, data []byte) error
}

// I2CBus is the buffer-oriented transport interface used by register-pointer
// style drivers: a write sets the device's internal register pointer (first
// byte) followed by optional payload, a read streams from the current
// pointer with auto-increment.
type I2CBus interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// Device is implemented by every simulated slave attached to a virtual bus.
// Implementations serialize access internally; the bus never holds a lock
// across a device call.
type Device interface {
	Kind() Kind
	ReadRegister(ctx context.Context, reg byte) (byte, error)
	WriteRegister(ctx context.Context, reg byte, value byte) error
}

// Kind identifies a simulated device model.
type Kind int

const (
	KindMPU6050 Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindMPU6050:
		return "mpu6050"
	default:
		return "unknown"
	}
}
