// Package bus implements the virtual I2C bus fabric: a registry of
// simulated devices keyed by 7-bit address, transaction routing with
// per-operation timing, bus-level noise and performance accounting.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/metrics"
	"github.com/mklimuk/i2csim/mpu6050"
)

// MaxDevices is the device table capacity per bus.
const MaxDevices = 128

// DefaultLatency is the simulated per-transaction processing delay.
const DefaultLatency = 100 * time.Microsecond

// noiseDelayMax bounds the random disturbance delay added when the bus
// noise draw hits.
const noiseDelayMax = 50 * time.Microsecond

var _ i2csim.RegisterBus = (*Bus)(nil)

// Bus is one virtual I2C bus. The device table mutex guards structural
// changes only (add/remove); it is never held across a read/write
// transaction, so transactions on different devices proceed independently
// while each device serializes its own access.
type Bus struct {
	name string

	mu      sync.RWMutex
	devices map[byte]i2csim.Device

	noiseMu sync.Mutex
	noise   float64
	rng     *rand.Rand

	latency      atomic.Int64
	transactions atomic.Uint64

	collector *metrics.Collector
	seed      uint64
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithCollector attaches a metrics collector observing every transaction.
func WithCollector(c *metrics.Collector) Option {
	return func(b *Bus) { b.collector = c }
}

// WithSeed seeds the bus noise RNG and every device created through Add,
// making whole-bus runs reproducible.
func WithSeed(seed uint64) Option {
	return func(b *Bus) {
		b.seed = seed
		if seed != 0 {
			b.rng = rand.New(rand.NewPCG(seed, seed^0xD1B54A32))
		}
	}
}

// WithLatency overrides the simulated per-transaction processing delay.
// Zero disables it.
func WithLatency(d time.Duration) Option {
	return func(b *Bus) { b.latency.Store(int64(d)) }
}

// New returns an empty bus with 1% default noise, like a real shared bus
// with mildly imperfect wiring.
func New(name string, opts ...Option) *Bus {
	b := &Bus{
		name:      name,
		devices:   make(map[byte]i2csim.Device),
		noise:     0.01,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		collector: metrics.NewCollector(),
	}
	b.latency.Store(int64(DefaultLatency))
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the bus identifier.
func (b *Bus) Name() string {
	return b.name
}

// Metrics returns the collector observing this bus.
func (b *Bus) Metrics() *metrics.Collector {
	return b.collector
}

// Transactions returns the total transaction count since creation.
func (b *Bus) Transactions() uint64 {
	return b.transactions.Load()
}

// SetNoise sets the bus-wide disturbance level (0.0-1.0): the probability
// of an extra 0-50µs delay per transaction.
func (b *Bus) SetNoise(level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("noise level %v out of range [0, 1]", level)
	}
	b.noiseMu.Lock()
	b.noise = level
	b.noiseMu.Unlock()
	return nil
}

// SetLatency sets the simulated per-transaction processing delay.
func (b *Bus) SetLatency(d time.Duration) {
	b.latency.Store(int64(d))
}

// Add creates a device of the given kind at addr. It fails with
// ErrAddressInUse when the address is occupied and ErrBusFull when the
// table holds MaxDevices entries.
func (b *Bus) Add(ctx context.Context, addr byte, kind i2csim.Kind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.devices[addr]; ok {
		return fmt.Errorf("address %#02x on %s: %w", addr, b.name, i2csim.ErrAddressInUse)
	}
	if len(b.devices) >= MaxDevices {
		return fmt.Errorf("bus %s: %w", b.name, i2csim.ErrBusFull)
	}
	switch kind {
	case i2csim.KindMPU6050:
		b.devices[addr] = mpu6050.New(mpu6050.WithSeed(b.deviceSeed(addr)))
	default:
		return fmt.Errorf("unsupported device kind %v", kind)
	}
	slog.Debug("device added", "bus", b.name, "addr", fmt.Sprintf("%#02x", addr), "kind", kind.String())
	return nil
}

// deviceSeed derives a per-address seed so that devices on a seeded bus
// draw independent but reproducible fault sequences.
func (b *Bus) deviceSeed(addr byte) uint64 {
	if b.seed == 0 {
		return 0
	}
	return b.seed ^ (uint64(addr)+1)<<32
}

// Remove evicts the device at addr and releases its resources. Subsequent
// operations on the address fail with ErrDeviceNotFound.
func (b *Bus) Remove(ctx context.Context, addr byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	dev, ok := b.devices[addr]
	if !ok {
		return fmt.Errorf("address %#02x on %s: %w", addr, b.name, i2csim.ErrDeviceNotFound)
	}
	delete(b.devices, addr)
	if d, ok := dev.(*mpu6050.Device); ok {
		d.Close()
	}
	slog.Debug("device removed", "bus", b.name, "addr", fmt.Sprintf("%#02x", addr))
	return nil
}

// Device returns the device registered at addr.
func (b *Bus) Device(addr byte) (i2csim.Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dev, ok := b.devices[addr]
	if !ok {
		return nil, fmt.Errorf("address %#02x on %s: %w", addr, b.name, i2csim.ErrDeviceNotFound)
	}
	return dev, nil
}

// MPU6050 returns the MPU-6050 registered at addr, for scenario
// configuration and FIFO access beyond the register protocol.
func (b *Bus) MPU6050(addr byte) (*mpu6050.Device, error) {
	dev, err := b.Device(addr)
	if err != nil {
		return nil, err
	}
	d, ok := dev.(*mpu6050.Device)
	if !ok {
		return nil, fmt.Errorf("device at %#02x is %s, not mpu6050", addr, dev.Kind())
	}
	return d, nil
}

// ReadByte reads one register from the device at addr.
func (b *Bus) ReadByte(ctx context.Context, addr byte, reg byte) (byte, error) {
	start := time.Now()
	b.beginTransaction()
	dev, err := b.Device(addr)
	if err != nil {
		b.finish(start, err)
		return 0, err
	}
	v, err := dev.ReadRegister(ctx, reg)
	b.collector.AddReads(1)
	b.finish(start, err)
	return v, err
}

// WriteByte writes one register on the device at addr.
func (b *Bus) WriteByte(ctx context.Context, addr byte, reg byte, value byte) error {
	start := time.Now()
	b.beginTransaction()
	dev, err := b.Device(addr)
	if err != nil {
		b.finish(start, err)
		return err
	}
	err = dev.WriteRegister(ctx, reg, value)
	b.collector.AddWrites(1)
	b.finish(start, err)
	return err
}

// ReadBurst performs len(buf) sequential register reads starting at reg.
// Fault injection applies per register access; a failure aborts the burst
// and the returned *BurstError carries the partial count.
func (b *Bus) ReadBurst(ctx context.Context, addr byte, reg byte, buf []byte) error {
	start := time.Now()
	b.beginTransaction()
	dev, err := b.Device(addr)
	if err != nil {
		b.finish(start, err)
		return err
	}
	for i := range buf {
		v, err := dev.ReadRegister(ctx, reg+byte(i))
		if err != nil {
			b.collector.AddReads(len(buf))
			berr := &i2csim.BurstError{Op: "read", Reg: reg, Done: i, Err: err}
			b.finish(start, berr)
			return berr
		}
		buf[i] = v
	}
	b.collector.AddReads(len(buf))
	b.finish(start, nil)
	return nil
}

// WriteBurst performs len(data) sequential register writes starting at reg.
func (b *Bus) WriteBurst(ctx context.Context, addr byte, reg byte, data []byte) error {
	start := time.Now()
	b.beginTransaction()
	dev, err := b.Device(addr)
	if err != nil {
		b.finish(start, err)
		return err
	}
	for i, v := range data {
		if err := dev.WriteRegister(ctx, reg+byte(i), v); err != nil {
			b.collector.AddWrites(len(data))
			berr := &i2csim.BurstError{Op: "write", Reg: reg, Done: i, Err: err}
			b.finish(start, berr)
			return berr
		}
	}
	b.collector.AddWrites(len(data))
	b.finish(start, nil)
	return nil
}

// beginTransaction applies the simulated processing delay and bus noise and
// bumps the transaction counter.
func (b *Bus) beginTransaction() {
	if d := time.Duration(b.latency.Load()); d > 0 {
		time.Sleep(d)
	}
	b.noiseMu.Lock()
	level := b.noise
	var jitter time.Duration
	if level > 0 && b.rng.Float64() < level {
		jitter = time.Duration(b.rng.Int64N(int64(noiseDelayMax)))
	}
	b.noiseMu.Unlock()
	if jitter > 0 {
		time.Sleep(jitter)
	}
	b.transactions.Add(1)
}

func (b *Bus) finish(start time.Time, err error) {
	b.collector.Observe(time.Since(start), err != nil)
	if err != nil && errors.Is(err, i2csim.ErrTimeout) {
		b.collector.AddTimeout()
	}
}
