package i2csim

import (
	"errors"
	"fmt"
)

// Transport and structural error taxonomy. Structural errors are returned
// synchronously and deterministically; transport errors may also be produced
// by the fault injector as simulated failures.
var (
	ErrDeviceNotFound = errors.New("i2c: device not found")
	ErrAddressInUse   = errors.New("i2c: address already in use")
	ErrBusFull        = errors.New("i2c: device table full")
	ErrTimeout        = errors.New("i2c: transaction timeout")
	ErrBusFault       = errors.New("i2c: bus error")
	ErrReadOnly       = errors.New("i2c: register is read-only")
)

// BurstError reports a burst transaction aborted partway through. Done is
// the number of bytes consumed before the failure; the device register
// pointer is left where the failure occurred, it is not rewound.
type BurstError struct {
	Op   string
	Reg  byte
	Done int
	Err  error
}

func (e *BurstError) Error() string {
	return fmt.Sprintf("i2c: burst %s at %#02x failed after %d bytes: %v", e.Op, e.Reg, e.Done, e.Err)
}

func (e *BurstError) Unwrap() error {
	return e.Err
}
