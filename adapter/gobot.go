package adapter

import (
	"context"
	"fmt"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/i2csim/bus"
)

var _ gi2c.Connector = (*GobotAdaptor)(nil)
var _ gi2c.Connection = (*gobotConnection)(nil)

// GobotAdaptor presents the virtual bus as a gobot i2c connector so gobot
// device drivers can be exercised against simulated hardware. All bus
// numbers resolve to the one wrapped bus.
type GobotAdaptor struct {
	bus *bus.Bus
}

// NewGobotAdaptor wraps the bus for gobot drivers.
func NewGobotAdaptor(b *bus.Bus) *GobotAdaptor {
	return &GobotAdaptor{bus: b}
}

// DefaultI2cBus returns the bus number gobot drivers use when none is
// configured.
func (a *GobotAdaptor) DefaultI2cBus() int {
	return 0
}

// GetI2cConnection returns a connection bound to the device address.
func (a *GobotAdaptor) GetI2cConnection(address int, busNr int) (gi2c.Connection, error) {
	if address < 0 || address > 0x7F {
		return nil, fmt.Errorf("address %#04x exceeds 7-bit range", address)
	}
	return &gobotConnection{v: NewVirtual(a.bus), addr: byte(address)}, nil
}

// gobotConnection implements gobot's SMBus-style operation set on top of
// the register-pointer adapter. Word operations are little-endian, per
// SMBus.
type gobotConnection struct {
	v    *Virtual
	addr byte
}

func (c *gobotConnection) Read(p []byte) (int, error) {
	if err := c.v.ReadFromAddr(context.Background(), c.addr, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *gobotConnection) Write(p []byte) (int, error) {
	if err := c.v.WriteToAddr(context.Background(), c.addr, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *gobotConnection) Close() error {
	return c.v.Release(context.Background())
}

func (c *gobotConnection) ReadByte() (byte, error) {
	var buf [1]byte
	if err := c.v.ReadFromAddr(context.Background(), c.addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *gobotConnection) ReadByteData(reg uint8) (uint8, error) {
	var buf [1]byte
	if err := c.readReg(reg, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *gobotConnection) ReadWordData(reg uint8) (uint16, error) {
	var buf [2]byte
	if err := c.readReg(reg, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (c *gobotConnection) ReadBlockData(reg uint8, b []byte) error {
	return c.readReg(reg, b)
}

func (c *gobotConnection) WriteByte(val byte) error {
	return c.v.WriteToAddr(context.Background(), c.addr, []byte{val})
}

func (c *gobotConnection) WriteByteData(reg uint8, val byte) error {
	return c.v.WriteToAddr(context.Background(), c.addr, []byte{reg, val})
}

func (c *gobotConnection) WriteWordData(reg uint8, val uint16) error {
	return c.v.WriteToAddr(context.Background(), c.addr, []byte{reg, byte(val), byte(val >> 8)})
}

func (c *gobotConnection) WriteBlockData(reg uint8, b []byte) error {
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, reg)
	buf = append(buf, b...)
	return c.v.WriteToAddr(context.Background(), c.addr, buf)
}

func (c *gobotConnection) WriteBytes(b []byte) error {
	return c.v.WriteToAddr(context.Background(), c.addr, b)
}

func (c *gobotConnection) readReg(reg uint8, buf []byte) error {
	ctx := context.Background()
	if err := c.v.WriteToAddr(ctx, c.addr, []byte{reg}); err != nil {
		return err
	}
	return c.v.ReadFromAddr(ctx, c.addr, buf)
}
