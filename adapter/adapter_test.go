package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/bus"
	"github.com/mklimuk/i2csim/mpu6050"
)

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.New("i2c-0", bus.WithSeed(3), bus.WithLatency(0))
	require.NoError(t, b.SetNoise(0))
	require.NoError(t, b.Add(context.Background(), mpu6050.Address, i2csim.KindMPU6050))
	return b
}

func TestVirtual_PointerProtocol(t *testing.T) {
	b := newTestBus(t)
	v := NewVirtual(b)
	ctx := context.Background()

	// pointer write then read, like a real driver reading WHO_AM_I
	require.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, []byte{mpu6050.RegWhoAmI}))
	buf := make([]byte, 1)
	require.NoError(t, v.ReadFromAddr(ctx, mpu6050.Address, buf))
	assert.Equal(t, byte(mpu6050.WhoAmIValue), buf[0])

	// payload bytes land on consecutive registers
	require.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, []byte{mpu6050.RegSmplrtDiv, 0x07, 0x06}))
	require.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, []byte{mpu6050.RegSmplrtDiv}))
	two := make([]byte, 2)
	require.NoError(t, v.ReadFromAddr(ctx, mpu6050.Address, two))
	assert.Equal(t, []byte{0x07, 0x06}, two)

	// pointer advances across reads
	require.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, []byte{mpu6050.RegSmplrtDiv}))
	one := make([]byte, 1)
	require.NoError(t, v.ReadFromAddr(ctx, mpu6050.Address, one))
	assert.Equal(t, byte(0x07), one[0])
	require.NoError(t, v.ReadFromAddr(ctx, mpu6050.Address, one))
	assert.Equal(t, byte(0x06), one[0])
}

func TestVirtual_Probe(t *testing.T) {
	b := newTestBus(t)
	v := NewVirtual(b)
	ctx := context.Background()

	assert.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, nil))
	assert.ErrorIs(t, v.WriteToAddr(ctx, 0x42, nil), i2csim.ErrDeviceNotFound)
	assert.ErrorIs(t, v.ReadFromAddr(ctx, 0x42, nil), i2csim.ErrDeviceNotFound)
}

func TestVirtual_Release(t *testing.T) {
	b := newTestBus(t)
	v := NewVirtual(b)
	ctx := context.Background()

	require.NoError(t, v.WriteToAddr(ctx, mpu6050.Address, []byte{mpu6050.RegWhoAmI}))
	require.NoError(t, v.Release(ctx))

	// pointer reset to zero after release
	buf := make([]byte, 1)
	require.NoError(t, v.ReadFromAddr(ctx, mpu6050.Address, buf))
	assert.NotEqual(t, byte(mpu6050.WhoAmIValue), buf[0])
}

func TestPeriphBus_Tx(t *testing.T) {
	b := newTestBus(t)
	p := NewPeriphBus(b)

	assert.Equal(t, "i2c-0", p.String())

	// combined write-read
	r := make([]byte, 1)
	require.NoError(t, p.Tx(uint16(mpu6050.Address), []byte{mpu6050.RegWhoAmI}, r))
	assert.Equal(t, byte(mpu6050.WhoAmIValue), r[0])

	// write-only
	require.NoError(t, p.Tx(uint16(mpu6050.Address), []byte{mpu6050.RegAccelConfig, 0x08}, nil))
	require.NoError(t, p.Tx(uint16(mpu6050.Address), []byte{mpu6050.RegAccelConfig}, r))
	assert.Equal(t, byte(0x08), r[0])

	assert.Error(t, p.Tx(0x1FF, []byte{0x00}, nil))
	assert.NoError(t, p.Close())
}

func TestPeriphBus_SetSpeed(t *testing.T) {
	b := newTestBus(t)
	p := NewPeriphBus(b)

	assert.Error(t, p.SetSpeed(0))
	assert.NoError(t, p.SetSpeed(100*physic.KiloHertz))
}

func TestGobotAdaptor(t *testing.T) {
	b := newTestBus(t)
	a := NewGobotAdaptor(b)

	assert.Equal(t, 0, a.DefaultI2cBus())

	_, err := a.GetI2cConnection(0x1FF, 0)
	assert.Error(t, err)

	conn, err := a.GetI2cConnection(int(mpu6050.Address), 0)
	require.NoError(t, err)
	defer conn.Close()

	v, err := conn.ReadByteData(mpu6050.RegWhoAmI)
	require.NoError(t, err)
	assert.Equal(t, uint8(mpu6050.WhoAmIValue), v)

	require.NoError(t, conn.WriteByteData(mpu6050.RegGyroConfig, 0x10))
	v, err = conn.ReadByteData(mpu6050.RegGyroConfig)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x10), v)

	// word operations are little-endian
	require.NoError(t, conn.WriteWordData(mpu6050.RegSmplrtDiv, 0x0102))
	w, err := conn.ReadWordData(mpu6050.RegSmplrtDiv)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), w)
	lo, err := conn.ReadByteData(mpu6050.RegSmplrtDiv)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x02), lo)

	block := make([]byte, 2)
	require.NoError(t, conn.ReadBlockData(mpu6050.RegSmplrtDiv, block))
	assert.Equal(t, []byte{0x02, 0x01}, block)

	// stream read follows the register pointer
	require.NoError(t, conn.WriteBytes([]byte{mpu6050.RegWhoAmI}))
	stream := make([]byte, 1)
	n, err := conn.Read(stream)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(mpu6050.WhoAmIValue), stream[0])
}
