package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/bus"
	"github.com/mklimuk/i2csim/metrics"
	"github.com/mklimuk/i2csim/mpu6050"
)

// State tracks a runner through its lifecycle.
type State int

const (
	StateConfigured State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runner executes one scenario against a bus: it installs and configures a
// device, polls it at the scenario's sample rate for the scenario's duration
// and collects the outcome.
type Runner struct {
	scenario Scenario
	bus      *bus.Bus
	addr     byte
	state    State
}

// NewRunner prepares a runner for the scenario. The bus must not already
// hold a device at the MPU-6050 address.
func NewRunner(s Scenario, b *bus.Bus) *Runner {
	return &Runner{scenario: s, bus: b, addr: mpu6050.Address, state: StateConfigured}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	return r.state
}

// Run executes the scenario and returns its validated result. Cancelling ctx
// aborts the run; the partial result is validated anyway so an operator sees
// what the truncated run produced. A run whose validation records failures
// ends Aborted, not Completed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.state != StateConfigured {
		return nil, fmt.Errorf("runner for %s already %s", r.scenario.Name, r.state)
	}
	if err := r.scenario.Validate(); err != nil {
		return nil, err
	}

	if err := r.bus.Add(ctx, r.addr, i2csim.KindMPU6050); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", r.scenario.Name, err)
	}
	defer func() {
		if err := r.bus.Remove(context.Background(), r.addr); err != nil {
			slog.Warn("device cleanup failed", "scenario", r.scenario.Name, "error", err)
		}
	}()

	dev, err := r.bus.MPU6050(r.addr)
	if err != nil {
		return nil, err
	}
	dev.SetPattern(r.scenario.Pattern)
	dev.SetErrorMode(r.scenario.ErrorMode, r.scenario.ErrorProbability)
	dev.SetPowerState(r.scenario.PowerState)
	if r.scenario.EnableFIFO {
		dev.EnableFIFO(true)
	}

	r.bus.Metrics().Reset()
	r.state = StateRunning

	slog.Info("scenario started",
		"name", r.scenario.Name,
		"pattern", r.scenario.Pattern.String(),
		"error_mode", r.scenario.ErrorMode.String(),
		"rate_hz", r.scenario.SampleRateHz,
		"duration", r.scenario.Duration.Duration(),
		"fifo", r.scenario.EnableFIFO,
		"interrupts", r.scenario.EnableInterrupts)

	var samples, successful, failed int
	interval := time.Second / time.Duration(r.scenario.SampleRateHz)
	start := time.Now()
	deadline := start.Add(r.scenario.Duration.Duration())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		if err := r.sampleOnce(ctx, dev, samples); err != nil {
			failed++
		} else {
			successful++
		}
		samples++

		select {
		case <-ctx.Done():
			r.state = StateAborted
			break loop
		case <-ticker.C:
		}
	}
	if r.state == StateRunning {
		r.state = StateCompleted
	}

	res := &Result{
		Scenario: r.scenario,
		State:    r.state,
		Elapsed:  time.Since(start),
		Samples:  samples,
		Success:  successful,
		Failed:   failed,
		Metrics:  r.bus.Metrics().Snapshot(),
	}
	validate(res)
	if res.State == StateCompleted && len(res.Failures) > 0 {
		res.State = StateAborted
		r.state = StateAborted
	}
	return res, nil
}

// sampleOnce performs one polling cycle: identify the device, then burst the
// accelerometer, gyroscope and temperature blocks, draining the FIFO every
// tenth cycle when enabled.
func (r *Runner) sampleOnce(ctx context.Context, dev *mpu6050.Device, n int) error {
	who, err := r.bus.ReadByte(ctx, r.addr, mpu6050.RegWhoAmI)
	if err != nil {
		return err
	}
	if who != mpu6050.WhoAmIValue {
		return fmt.Errorf("unexpected identity %#02x", who)
	}

	var accel [6]byte
	if err := r.bus.ReadBurst(ctx, r.addr, mpu6050.RegAccelXoutH, accel[:]); err != nil {
		return err
	}
	var gyro [6]byte
	if err := r.bus.ReadBurst(ctx, r.addr, mpu6050.RegGyroXoutH, gyro[:]); err != nil {
		return err
	}
	var temp [2]byte
	if err := r.bus.ReadBurst(ctx, r.addr, mpu6050.RegTempOutH, temp[:]); err != nil {
		return err
	}

	if r.scenario.EnableFIFO && n > 0 && n%10 == 0 {
		if dev.FIFOCount() > 0 {
			var buf [64]byte
			dev.DrainFIFO(buf[:])
		}
	}
	return nil
}

// Result is the outcome of one scenario run, including the validator's
// verdict.
type Result struct {
	Scenario Scenario
	State    State
	Elapsed  time.Duration
	Samples  int
	Success  int
	Failed   int
	Metrics  metrics.Metrics

	Failures []string
	Warnings []string
}

// Passed reports whether the run completed with no validation failures.
func (r *Result) Passed() bool {
	return r.State == StateCompleted && len(r.Failures) == 0
}
