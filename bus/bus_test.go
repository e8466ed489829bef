package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/fault"
	"github.com/mklimuk/i2csim/mpu6050"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	b := New("i2c-0", WithSeed(1), WithLatency(0))
	require.NoError(t, b.SetNoise(0))
	return b
}

func TestBus_AddRemove(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	err := b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050)
	assert.ErrorIs(t, err, i2csim.ErrAddressInUse)

	// distinct addresses never alias onto the same slot
	require.NoError(t, b.Add(ctx, 0x69, i2csim.KindMPU6050))
	_, err = b.Device(0x69)
	require.NoError(t, err)

	require.NoError(t, b.Remove(ctx, mpu6050.Address))
	_, err = b.ReadByte(ctx, mpu6050.Address, mpu6050.RegWhoAmI)
	assert.ErrorIs(t, err, i2csim.ErrDeviceNotFound)

	err = b.Remove(ctx, mpu6050.Address)
	assert.ErrorIs(t, err, i2csim.ErrDeviceNotFound)
}

func TestBus_TableFull(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	for i := 0; i < MaxDevices; i++ {
		require.NoError(t, b.Add(ctx, byte(i), i2csim.KindMPU6050))
	}
	err := b.Add(ctx, byte(MaxDevices), i2csim.KindMPU6050)
	assert.ErrorIs(t, err, i2csim.ErrBusFull)
}

func TestBus_ReadWriteByte(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	v, err := b.ReadByte(ctx, mpu6050.Address, mpu6050.RegWhoAmI)
	require.NoError(t, err)
	assert.Equal(t, byte(mpu6050.WhoAmIValue), v)

	require.NoError(t, b.WriteByte(ctx, mpu6050.Address, mpu6050.RegAccelConfig, 0x18))
	v, err = b.ReadByte(ctx, mpu6050.Address, mpu6050.RegAccelConfig)
	require.NoError(t, err)
	assert.Equal(t, byte(0x18), v)

	m := b.Metrics().Snapshot()
	assert.Equal(t, uint64(2), m.TotalReads)
	assert.Equal(t, uint64(1), m.TotalWrites)
	assert.Zero(t, m.ErrorsInjected)
	assert.Equal(t, uint64(3), b.Transactions())
}

func TestBus_BurstSemantics(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))
	require.NoError(t, b.WriteByte(ctx, mpu6050.Address, mpu6050.RegPwrMgmt1, 0x00))

	// a 14-byte burst starting at ACCEL_XOUT_H returns one coherent frame
	buf := make([]byte, 14)
	require.NoError(t, b.ReadBurst(ctx, mpu6050.Address, mpu6050.RegAccelXoutH, buf))

	dev, err := b.MPU6050(mpu6050.Address)
	require.NoError(t, err)
	frame := dev.Data().Bytes()
	assert.Equal(t, frame[:], buf)

	accelZ := int16(uint16(buf[4])<<8 | uint16(buf[5]))
	assert.Equal(t, int16(mpu6050.AccelLSBPerG), accelZ)
}

func TestBus_BurstAbortsOnFault(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	dev, err := b.MPU6050(mpu6050.Address)
	require.NoError(t, err)
	dev.SetErrorMode(fault.ModeBusError, 1)

	buf := make([]byte, 6)
	err = b.ReadBurst(ctx, mpu6050.Address, mpu6050.RegAccelXoutH, buf)
	require.Error(t, err)

	var berr *i2csim.BurstError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 0, berr.Done, "fault on the first byte aborts immediately")
	assert.ErrorIs(t, err, i2csim.ErrBusFault)
}

func TestBus_WriteBurstPartialCount(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	// a burst crossing into the read-only output block stops at the
	// boundary: the two plain registers before ACCEL_XOUT_H take the write,
	// the third byte is rejected
	data := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	err := b.WriteBurst(ctx, mpu6050.Address, mpu6050.RegAccelXoutH-2, data)
	require.Error(t, err)

	var berr *i2csim.BurstError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 2, berr.Done)
	assert.ErrorIs(t, err, i2csim.ErrReadOnly)

	v, err := b.ReadByte(ctx, mpu6050.Address, mpu6050.RegAccelXoutH-1)
	require.NoError(t, err)
	assert.Equal(t, byte(0xBB), v)
}

func TestBus_TimeoutRecorded(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	dev, err := b.MPU6050(mpu6050.Address)
	require.NoError(t, err)
	dev.SetErrorMode(fault.ModeTimeout, 1)

	start := time.Now()
	_, err = b.ReadByte(ctx, mpu6050.Address, mpu6050.RegWhoAmI)
	assert.ErrorIs(t, err, i2csim.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), fault.DefaultTimeoutDelay,
		"timed-out operation blocks for the full simulated duration")

	m := b.Metrics().Snapshot()
	assert.Equal(t, uint64(1), m.Timeouts)
	assert.Equal(t, uint64(1), m.ErrorsInjected)
}

func TestBus_ConcurrentAccess(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	dev, err := b.MPU6050(mpu6050.Address)
	require.NoError(t, err)
	dev.SetPattern(mpu6050.PatternSineWave)
	dev.SetPowerState(mpu6050.PowerOn)

	const workers = 4
	const iterations = 1000

	var success, failure atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				var err error
				if id%2 == 0 {
					_, err = b.ReadByte(ctx, mpu6050.Address, mpu6050.RegWhoAmI)
				} else {
					err = b.WriteByte(ctx, mpu6050.Address, mpu6050.RegAccelConfig, byte(i%4)<<3)
				}
				if err != nil {
					failure.Add(1)
				} else {
					success.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	total := success.Load() + failure.Load()
	assert.Equal(t, int64(workers*iterations), total, "no operation lost or double counted")
	assert.Less(t, float64(failure.Load())/float64(total), 0.05)

	m := b.Metrics().Snapshot()
	assert.Equal(t, uint64(workers*iterations), m.TotalOps())
}

func TestBus_IndependentDevices(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, 0x68, i2csim.KindMPU6050))
	require.NoError(t, b.Add(ctx, 0x69, i2csim.KindMPU6050))

	// fault one device, the other keeps working
	dev, err := b.MPU6050(0x68)
	require.NoError(t, err)
	dev.SetErrorMode(fault.ModeBusError, 1)

	_, err = b.ReadByte(ctx, 0x68, mpu6050.RegWhoAmI)
	assert.ErrorIs(t, err, i2csim.ErrBusFault)

	v, err := b.ReadByte(ctx, 0x69, mpu6050.RegWhoAmI)
	require.NoError(t, err)
	assert.Equal(t, byte(mpu6050.WhoAmIValue), v)
}

func TestBus_Throughput(t *testing.T) {
	if testing.Short() {
		t.Skip("throughput measurement")
	}
	b := newTestBus(t)
	ctx := context.Background()
	require.NoError(t, b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050))

	const ops = 200000
	start := time.Now()
	for i := 0; i < ops; i++ {
		_, err := b.ReadByte(ctx, mpu6050.Address, mpu6050.RegWhoAmI)
		require.NoError(t, err)
	}
	elapsed := time.Since(start)
	throughput := float64(ops) / elapsed.Seconds()
	assert.Greater(t, throughput, 100000.0, "sustained ops/s with zero simulated latency")
}
