// Package driver contains a client-side MPU-6050 driver speaking the raw
// register-pointer protocol. It is written against the transport interface
// only, so it runs identically on the simulator and on real hardware behind
// a compatible adapter.
package driver

import (
	"context"
	"fmt"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/mpu6050"
)

// MPU6050 is a 6-axis IMU client.
type MPU6050 struct {
	transport i2csim.I2CBus
	addr      byte
}

func NewMPU6050(trans i2csim.I2CBus) *MPU6050 {
	return &MPU6050{transport: trans, addr: mpu6050.Address}
}

// Probe verifies the device answers with the expected identity.
func (m *MPU6050) Probe(ctx context.Context) error {
	v, err := m.readReg(ctx, mpu6050.RegWhoAmI)
	if err != nil {
		return fmt.Errorf("could not read device identity: %w", err)
	}
	if v != mpu6050.WhoAmIValue {
		return fmt.Errorf("unexpected identity %#02x (want %#02x)", v, mpu6050.WhoAmIValue)
	}
	return nil
}

// WakeUp clears the sleep bit so the device starts producing samples.
func (m *MPU6050) WakeUp(ctx context.Context) error {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegPwrMgmt1, 0x00})
	if err != nil {
		return fmt.Errorf("could not wake up device: %w", err)
	}
	return nil
}

// Sleep puts the device into its low-power state.
func (m *MPU6050) Sleep(ctx context.Context) error {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegPwrMgmt1, mpu6050.PwrMgmt1Sleep})
	if err != nil {
		return fmt.Errorf("could not put device to sleep: %w", err)
	}
	return nil
}

// ReadSample bursts the full 14-byte output block and decodes it.
func (m *MPU6050) ReadSample(ctx context.Context) (mpu6050.Sample, error) {
	var s mpu6050.Sample
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegAccelXoutH})
	if err != nil {
		return s, fmt.Errorf("could not set register pointer: %w", err)
	}
	buf := make([]byte, 14)
	err = m.transport.ReadFromAddr(ctx, m.addr, buf)
	if err != nil {
		return s, fmt.Errorf("could not read sensor data: %w", err)
	}
	s.AccelX = word(buf[0], buf[1])
	s.AccelY = word(buf[2], buf[3])
	s.AccelZ = word(buf[4], buf[5])
	s.Temperature = word(buf[6], buf[7])
	s.GyroX = word(buf[8], buf[9])
	s.GyroY = word(buf[10], buf[11])
	s.GyroZ = word(buf[12], buf[13])
	return s, nil
}

// Temperature reads the die temperature in degrees Celsius.
func (m *MPU6050) Temperature(ctx context.Context) (float64, error) {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegTempOutH})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer: %w", err)
	}
	buf := make([]byte, 2)
	err = m.transport.ReadFromAddr(ctx, m.addr, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read temperature: %w", err)
	}
	s := mpu6050.Sample{Temperature: word(buf[0], buf[1])}
	return s.Celsius(), nil
}

// SelfTest activates the self-test bits of both configuration registers,
// measures the response against a baseline sample and restores the previous
// configuration. The returned sample carries the per-axis response deltas.
func (m *MPU6050) SelfTest(ctx context.Context) (mpu6050.Sample, error) {
	var delta mpu6050.Sample
	accelCfg, err := m.readReg(ctx, mpu6050.RegAccelConfig)
	if err != nil {
		return delta, fmt.Errorf("could not read accelerometer config: %w", err)
	}
	gyroCfg, err := m.readReg(ctx, mpu6050.RegGyroConfig)
	if err != nil {
		return delta, fmt.Errorf("could not read gyroscope config: %w", err)
	}
	baseline, err := m.ReadSample(ctx)
	if err != nil {
		return delta, fmt.Errorf("could not read baseline sample: %w", err)
	}

	if err := m.writeReg(ctx, mpu6050.RegAccelConfig, accelCfg|mpu6050.ConfigSelfTestMask); err != nil {
		return delta, fmt.Errorf("could not enable accelerometer self-test: %w", err)
	}
	if err := m.writeReg(ctx, mpu6050.RegGyroConfig, gyroCfg|mpu6050.ConfigSelfTestMask); err != nil {
		return delta, fmt.Errorf("could not enable gyroscope self-test: %w", err)
	}
	activated, sampleErr := m.ReadSample(ctx)

	if err := m.writeReg(ctx, mpu6050.RegAccelConfig, accelCfg); err != nil {
		return delta, fmt.Errorf("could not restore accelerometer config: %w", err)
	}
	if err := m.writeReg(ctx, mpu6050.RegGyroConfig, gyroCfg); err != nil {
		return delta, fmt.Errorf("could not restore gyroscope config: %w", err)
	}
	if sampleErr != nil {
		return delta, fmt.Errorf("could not read self-test response: %w", sampleErr)
	}

	delta.AccelX = activated.AccelX - baseline.AccelX
	delta.AccelY = activated.AccelY - baseline.AccelY
	delta.AccelZ = activated.AccelZ - baseline.AccelZ
	delta.GyroX = activated.GyroX - baseline.GyroX
	delta.GyroY = activated.GyroY - baseline.GyroY
	delta.GyroZ = activated.GyroZ - baseline.GyroZ
	return delta, nil
}

// EnableFIFO turns the FIFO on through USER_CTRL.
func (m *MPU6050) EnableFIFO(ctx context.Context) error {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegUserCtrl, mpu6050.UserCtrlFifoEn})
	if err != nil {
		return fmt.Errorf("could not enable FIFO: %w", err)
	}
	return nil
}

// FIFOCount reads the number of bytes buffered in the FIFO.
func (m *MPU6050) FIFOCount(ctx context.Context) (int, error) {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegFifoCountH})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer: %w", err)
	}
	buf := make([]byte, 2)
	err = m.transport.ReadFromAddr(ctx, m.addr, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read FIFO count: %w", err)
	}
	return int(buf[0])<<8 | int(buf[1]), nil
}

// ReadFIFO pops up to len(buf) bytes from the FIFO data register. The data
// register does not auto-increment, so every byte resets the pointer.
func (m *MPU6050) ReadFIFO(ctx context.Context, buf []byte) (int, error) {
	count, err := m.FIFOCount(ctx)
	if err != nil {
		return 0, err
	}
	if count > len(buf) {
		count = len(buf)
	}
	one := make([]byte, 1)
	for i := 0; i < count; i++ {
		err := m.transport.WriteToAddr(ctx, m.addr, []byte{mpu6050.RegFifoRW})
		if err != nil {
			return i, fmt.Errorf("could not set register pointer: %w", err)
		}
		err = m.transport.ReadFromAddr(ctx, m.addr, one)
		if err != nil {
			return i, fmt.Errorf("could not read FIFO data: %w", err)
		}
		buf[i] = one[0]
	}
	return count, nil
}

func (m *MPU6050) writeReg(ctx context.Context, reg, value byte) error {
	return m.transport.WriteToAddr(ctx, m.addr, []byte{reg, value})
}

func (m *MPU6050) readReg(ctx context.Context, reg byte) (byte, error) {
	err := m.transport.WriteToAddr(ctx, m.addr, []byte{reg})
	if err != nil {
		return 0, fmt.Errorf("could not set register pointer: %w", err)
	}
	buf := []byte{0x00}
	err = m.transport.ReadFromAddr(ctx, m.addr, buf)
	if err != nil {
		return 0, fmt.Errorf("could not read register content: %w", err)
	}
	return buf[0], nil
}

func word(hi, lo byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}
