// Package mpu6050 implements a register-level simulation of the InvenSense
// MPU-6050 6-axis motion sensor: the full register map, power management,
// the 1024-byte FIFO and configurable data generation patterns. Driver code
// written against the real part cannot tell the difference except through
// deliberately injected faults.
package mpu6050

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/fault"
	"github.com/mklimuk/i2csim/fifo"
)

// Self-test response deltas in LSB, applied to every axis while self-test
// is active.
const (
	selfTestAccelDelta = 500
	selfTestGyroDelta  = 50
)

var _ i2csim.Device = (*Device)(nil)

// Device is one simulated MPU-6050. All register and configuration access
// is serialized by the device's own mutex; the FIFO and the pattern RNG are
// only touched with that mutex held.
type Device struct {
	mu sync.Mutex

	regs    [256]byte
	sample  Sample
	fifo    fifo.Buffer
	power   PowerState
	pattern Pattern

	injector *fault.Injector
	rng      *rand.Rand

	selfTest    bool
	sampleCount uint32
	created     time.Time
	initialized bool
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithSeed makes fault injection and noise generation reproducible.
func WithSeed(seed uint64) Option {
	return func(d *Device) {
		if seed == 0 {
			return
		}
		d.injector = fault.New(seed)
		d.rng = rand.New(rand.NewPCG(seed, seed^0xA5A5A5A5))
	}
}

// New returns a device initialized to power-on defaults: asleep, gravity
// only, FIFO disabled, no fault injection.
func New(opts ...Option) *Device {
	d := &Device{
		injector: fault.New(0),
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.mu.Lock()
	d.powerOnDefaultsLocked()
	d.created = time.Now()
	d.initialized = true
	d.mu.Unlock()
	return d
}

// Kind implements i2csim.Device.
func (d *Device) Kind() i2csim.Kind {
	return i2csim.KindMPU6050
}

// ReadRegister returns one register byte. Sensor output reads starting at
// RegAccelXoutH refresh the live sample first (lazily, and only while
// powered On or Cycle) so that one burst observes one coherent sample.
// Reading RegFifoRW pops a byte from the FIFO, or returns 0 when empty.
func (d *Device) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return 0, i2csim.ErrDeviceNotFound
	}
	switch d.injector.Draw() {
	case fault.NotFound:
		return 0, i2csim.ErrDeviceNotFound
	case fault.Timeout:
		// a timed-out transaction blocks the caller for the full
		// simulated duration, it is not a deadline cancellation
		time.Sleep(d.injector.TimeoutDelay)
		return 0, i2csim.ErrTimeout
	case fault.BusFault:
		return 0, i2csim.ErrBusFault
	case fault.Corrupt:
		return d.injector.CorruptByte(), nil
	}
	return d.readLocked(reg), nil
}

func (d *Device) readLocked(reg byte) byte {
	switch reg {
	case RegAccelXoutH:
		d.refreshLocked()
		return byte(uint16(d.sample.AccelX) >> 8)
	case RegAccelXoutL:
		return byte(uint16(d.sample.AccelX))
	case RegAccelYoutH:
		return byte(uint16(d.sample.AccelY) >> 8)
	case RegAccelYoutL:
		return byte(uint16(d.sample.AccelY))
	case RegAccelZoutH:
		return byte(uint16(d.sample.AccelZ) >> 8)
	case RegAccelZoutL:
		return byte(uint16(d.sample.AccelZ))
	case RegTempOutH:
		return byte(uint16(d.sample.Temperature) >> 8)
	case RegTempOutL:
		return byte(uint16(d.sample.Temperature))
	case RegGyroXoutH:
		return byte(uint16(d.sample.GyroX) >> 8)
	case RegGyroXoutL:
		return byte(uint16(d.sample.GyroX))
	case RegGyroYoutH:
		return byte(uint16(d.sample.GyroY) >> 8)
	case RegGyroYoutL:
		return byte(uint16(d.sample.GyroY))
	case RegGyroZoutH:
		return byte(uint16(d.sample.GyroZ) >> 8)
	case RegGyroZoutL:
		return byte(uint16(d.sample.GyroZ))
	case RegFifoCountH:
		return byte(d.fifo.Len() >> 8)
	case RegFifoCountL:
		return byte(d.fifo.Len())
	case RegFifoRW:
		v, _ := d.fifo.Pop()
		return v
	default:
		return d.regs[reg]
	}
}

// WriteRegister stores one register byte, rejecting the read-only set, and
// applies power-management, self-test and FIFO side effects synchronously.
func (d *Device) WriteRegister(ctx context.Context, reg byte, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.initialized {
		return i2csim.ErrDeviceNotFound
	}
	switch d.injector.Draw() {
	case fault.NotFound:
		return i2csim.ErrDeviceNotFound
	case fault.Timeout:
		time.Sleep(d.injector.TimeoutDelay)
		return i2csim.ErrTimeout
	case fault.BusFault:
		return i2csim.ErrBusFault
	case fault.Corrupt:
		// corruption affects reads only
	}
	if readOnly(reg) {
		return fmt.Errorf("register %#02x: %w", reg, i2csim.ErrReadOnly)
	}
	switch reg {
	case RegPwrMgmt1:
		d.powerManagementLocked(value)
	case RegUserCtrl:
		d.userControlLocked(value)
	case RegAccelConfig, RegGyroConfig:
		d.regs[reg] = value
		d.selfTest = d.regs[RegAccelConfig]&ConfigSelfTestMask != 0 ||
			d.regs[RegGyroConfig]&ConfigSelfTestMask != 0
	case RegFifoRW:
		// dropped pushes latch the overflow flag, they do not fail the write
		d.fifo.Push(value)
	default:
		d.regs[reg] = value
	}
	return nil
}

func (d *Device) powerManagementLocked(value byte) {
	d.regs[RegPwrMgmt1] = value
	if value&PwrMgmt1DeviceReset != 0 {
		d.resetRegistersLocked()
		return
	}
	switch {
	case value&PwrMgmt1Sleep != 0:
		d.power = PowerSleep
	case value&PwrMgmt1Cycle != 0:
		d.power = PowerCycle
	default:
		d.power = PowerOn
	}
}

func (d *Device) userControlLocked(value byte) {
	d.regs[RegUserCtrl] = value
	d.fifo.SetEnabled(value&UserCtrlFifoEn != 0)
	if value&UserCtrlFifoReset != 0 {
		d.fifo.Reset()
	}
}

// resetRegistersLocked services the DEVICE_RESET bit: registers, sample and
// FIFO return to power-on defaults and the device goes back to sleep. The
// configured pattern and fault mode are simulation parameters, not device
// registers, and survive the reset.
func (d *Device) resetRegistersLocked() {
	d.regs = [256]byte{}
	d.regs[RegWhoAmI] = WhoAmIValue
	d.regs[RegPwrMgmt1] = PwrMgmt1Sleep
	d.power = PowerSleep
	d.sample = Sample{
		AccelZ:      AccelLSBPerG,
		Temperature: tempRaw(defaultTempC),
		Timestamp:   time.Now(),
	}
	d.sampleCount = 0
	d.selfTest = false
	d.fifo.SetEnabled(false)
	d.fifo.Reset()
}

func (d *Device) powerOnDefaultsLocked() {
	d.resetRegistersLocked()
	d.pattern = PatternGravityOnly
	d.injector.Configure(fault.ModeNone, 0)
}

// refreshLocked advances the live sample by one step of the configured
// pattern. Generation is frozen while the device is Off or asleep. With the
// FIFO enabled the 14-byte frame is appended byte by byte; whatever does
// not fit is dropped with the overflow flag set.
func (d *Device) refreshLocked() {
	if !d.power.active() {
		return
	}
	d.sampleCount++
	d.sample = Sample{
		AccelX:      genAccel(d.pattern, 0, d.sampleCount, d.rng),
		AccelY:      genAccel(d.pattern, 1, d.sampleCount, d.rng),
		AccelZ:      genAccel(d.pattern, 2, d.sampleCount, d.rng),
		GyroX:       genGyro(d.pattern, 0, d.sampleCount, d.rng),
		GyroY:       genGyro(d.pattern, 1, d.sampleCount, d.rng),
		GyroZ:       genGyro(d.pattern, 2, d.sampleCount, d.rng),
		Temperature: genTemp(d.pattern, d.sampleCount, d.rng),
		Timestamp:   time.Now(),
	}
	if d.selfTest {
		d.sample.AccelX = clamp16(float64(d.sample.AccelX) + selfTestAccelDelta)
		d.sample.AccelY = clamp16(float64(d.sample.AccelY) + selfTestAccelDelta)
		d.sample.AccelZ = clamp16(float64(d.sample.AccelZ) + selfTestAccelDelta)
		d.sample.GyroX = clamp16(float64(d.sample.GyroX) + selfTestGyroDelta)
		d.sample.GyroY = clamp16(float64(d.sample.GyroY) + selfTestGyroDelta)
		d.sample.GyroZ = clamp16(float64(d.sample.GyroZ) + selfTestGyroDelta)
	}
	if d.fifo.Enabled() {
		frame := d.sample.Bytes()
		for _, b := range frame {
			if !d.fifo.Push(b) {
				break
			}
		}
	}
}

// Reset restores full power-on defaults, including pattern and fault mode.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.powerOnDefaultsLocked()
}

// SetPattern selects the data generation pattern.
func (d *Device) SetPattern(p Pattern) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pattern = p
}

// Pattern returns the current data generation pattern.
func (d *Device) Pattern() Pattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pattern
}

// SetErrorMode configures fault injection for this device.
func (d *Device) SetErrorMode(mode fault.Mode, probability float64) {
	d.injector.Configure(mode, probability)
}

// ErrorMode returns the configured fault mode and probability.
func (d *Device) ErrorMode() (fault.Mode, float64) {
	return d.injector.Mode()
}

// InjectError forces a bus error on every subsequent operation until the
// error mode is reconfigured.
func (d *Device) InjectError() {
	d.injector.Configure(fault.ModeBusError, 1)
}

// SetPowerState transitions the device and mirrors the state into
// PWR_MGMT_1.
func (d *Device) SetPowerState(s PowerState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.power = s
	switch s {
	case PowerOff, PowerSleep:
		d.regs[RegPwrMgmt1] |= PwrMgmt1Sleep
	case PowerCycle:
		d.regs[RegPwrMgmt1] |= PwrMgmt1Cycle
	case PowerOn:
		d.regs[RegPwrMgmt1] &^= PwrMgmt1Sleep | PwrMgmt1Cycle
	}
}

// PowerState returns the current power state.
func (d *Device) PowerState() PowerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}

// Data returns a snapshot of the current live sample.
func (d *Device) Data() Sample {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sample
}

// SampleCount returns the number of samples generated since the last reset.
func (d *Device) SampleCount() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sampleCount
}

// EnableFIFO toggles the FIFO and mirrors the state into USER_CTRL.
// Enabling starts from an empty buffer.
func (d *Device) EnableFIFO(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fifo.SetEnabled(enabled)
	if enabled {
		d.regs[RegUserCtrl] |= UserCtrlFifoEn
	} else {
		d.regs[RegUserCtrl] &^= UserCtrlFifoEn
	}
}

// ResetFIFO clears the FIFO contents and overflow flag.
func (d *Device) ResetFIFO() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fifo.Reset()
}

// FIFOCount returns the number of buffered FIFO bytes.
func (d *Device) FIFOCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fifo.Len()
}

// FIFOOverflow reports the sticky overflow flag.
func (d *Device) FIFOOverflow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fifo.Overflow()
}

// DrainFIFO copies up to len(buf) buffered bytes into buf and returns how
// many were drained.
func (d *Device) DrainFIFO(buf []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for n < len(buf) {
		v, ok := d.fifo.Pop()
		if !ok {
			break
		}
		buf[n] = v
		n++
	}
	return n
}

// SetSelfTest toggles the self-test response deltas on generated samples and
// mirrors the state into the ACCEL_CONFIG and GYRO_CONFIG self-test bits.
func (d *Device) SetSelfTest(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selfTest = enabled
	if enabled {
		d.regs[RegAccelConfig] |= ConfigSelfTestMask
		d.regs[RegGyroConfig] |= ConfigSelfTestMask
	} else {
		d.regs[RegAccelConfig] &^= ConfigSelfTestMask
		d.regs[RegGyroConfig] &^= ConfigSelfTestMask
	}
}

// Created returns the device creation timestamp.
func (d *Device) Created() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Close marks the device as removed; subsequent register access fails with
// ErrDeviceNotFound.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
}
