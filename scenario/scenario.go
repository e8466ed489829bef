// Package scenario defines declarative simulator test scenarios, a runner
// executing them against a virtual bus and a validator comparing the
// recorded metrics with the scenario's expectations.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2csim/fault"
	"github.com/mklimuk/i2csim/mpu6050"
)

// Duration wraps time.Duration with yaml support ("500ms", "3s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Scenario is one simulator test case: device configuration, run length and
// the fault profile whose observed rate the validator checks afterwards.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Pattern          mpu6050.Pattern    `yaml:"pattern"`
	ErrorMode        fault.Mode         `yaml:"error_mode"`
	ErrorProbability float64            `yaml:"error_probability"`
	Duration         Duration           `yaml:"duration"`
	SampleRateHz     int                `yaml:"sample_rate_hz"`
	EnableFIFO       bool               `yaml:"enable_fifo"`
	EnableInterrupts bool               `yaml:"enable_interrupts"`
	PowerState       mpu6050.PowerState `yaml:"power_state"`
}

// Validate checks the scenario for values the runner cannot execute.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.SampleRateHz <= 0 {
		return fmt.Errorf("scenario %s: sample rate %d must be positive", s.Name, s.SampleRateHz)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("scenario %s: duration %s must be positive", s.Name, s.Duration.Duration())
	}
	if s.ErrorProbability < 0 || s.ErrorProbability > 1 {
		return fmt.Errorf("scenario %s: error probability %v out of range [0, 1]", s.Name, s.ErrorProbability)
	}
	return nil
}

// Load reads scenarios from a yaml file: either a single document with a
// top-level `scenarios` list or a bare list.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var doc struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Scenarios) == 0 {
		var list []Scenario
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			if err == nil {
				err = lerr
			}
			return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
		}
		doc.Scenarios = list
	}
	for i := range doc.Scenarios {
		if err := doc.Scenarios[i].Validate(); err != nil {
			return nil, err
		}
	}
	return doc.Scenarios, nil
}

// Builtin returns the predefined scenario suite covering normal operation,
// every fault mode, FIFO behavior, power management and sustained stress.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:         "normal_operation",
			Description:  "Normal MPU-6050 operation with gravity-only data",
			Pattern:      mpu6050.PatternGravityOnly,
			ErrorMode:    fault.ModeNone,
			Duration:     Duration(5 * time.Second),
			SampleRateHz: 100,
			PowerState:   mpu6050.PowerOn,
		},
		{
			Name:             "fifo_operation",
			Description:      "FIFO buffer operation with sine wave data",
			Pattern:          mpu6050.PatternSineWave,
			ErrorMode:        fault.ModeNone,
			Duration:         Duration(3 * time.Second),
			SampleRateHz:     200,
			EnableFIFO:       true,
			EnableInterrupts: true,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:         "high_frequency_sampling",
			Description:  "High frequency sampling with vibration pattern",
			Pattern:      mpu6050.PatternVibration,
			ErrorMode:    fault.ModeNone,
			Duration:     Duration(2 * time.Second),
			SampleRateHz: 1000,
			EnableFIFO:   true,
			PowerState:   mpu6050.PowerOn,
		},
		{
			Name:         "noisy_environment",
			Description:  "Operation in noisy environment with random data",
			Pattern:      mpu6050.PatternNoise,
			ErrorMode:    fault.ModeNone,
			Duration:     Duration(4 * time.Second),
			SampleRateHz: 50,
			PowerState:   mpu6050.PowerOn,
		},
		{
			Name:             "rotation_simulation",
			Description:      "Device rotation simulation",
			Pattern:          mpu6050.PatternRotation,
			ErrorMode:        fault.ModeNone,
			Duration:         Duration(6 * time.Second),
			SampleRateHz:     100,
			EnableFIFO:       true,
			EnableInterrupts: true,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:         "power_management",
			Description:  "Power management state transitions",
			Pattern:      mpu6050.PatternStatic,
			ErrorMode:    fault.ModeNone,
			Duration:     Duration(8 * time.Second),
			SampleRateHz: 10,
			PowerState:   mpu6050.PowerSleep,
		},
		{
			Name:             "intermittent_errors",
			Description:      "Intermittent communication errors",
			Pattern:          mpu6050.PatternGravityOnly,
			ErrorMode:        fault.ModeIntermittent,
			ErrorProbability: 0.05,
			Duration:         Duration(3 * time.Second),
			SampleRateHz:     100,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:             "bus_errors",
			Description:      "I2C bus error conditions",
			Pattern:          mpu6050.PatternSineWave,
			ErrorMode:        fault.ModeBusError,
			ErrorProbability: 0.02,
			Duration:         Duration(4 * time.Second),
			SampleRateHz:     200,
			EnableFIFO:       true,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:             "timeout_conditions",
			Description:      "Timeout error simulation",
			Pattern:          mpu6050.PatternStatic,
			ErrorMode:        fault.ModeTimeout,
			ErrorProbability: 0.01,
			Duration:         Duration(5 * time.Second),
			SampleRateHz:     50,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:             "data_corruption",
			Description:      "Data corruption simulation",
			Pattern:          mpu6050.PatternRotation,
			ErrorMode:        fault.ModeCorruptData,
			ErrorProbability: 0.03,
			Duration:         Duration(3 * time.Second),
			SampleRateHz:     100,
			EnableFIFO:       true,
			EnableInterrupts: true,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:             "device_not_found",
			Description:      "Device not found error simulation",
			Pattern:          mpu6050.PatternStatic,
			ErrorMode:        fault.ModeDeviceNotFound,
			ErrorProbability: 0.1,
			Duration:         Duration(2 * time.Second),
			SampleRateHz:     10,
			PowerState:       mpu6050.PowerOff,
		},
		{
			Name:             "fifo_overflow",
			Description:      "FIFO buffer overflow testing",
			Pattern:          mpu6050.PatternVibration,
			ErrorMode:        fault.ModeNone,
			Duration:         Duration(1 * time.Second),
			SampleRateHz:     2000,
			EnableFIFO:       true,
			EnableInterrupts: true,
			PowerState:       mpu6050.PowerOn,
		},
		{
			Name:         "concurrent_access",
			Description:  "Concurrent access from multiple workers",
			Pattern:      mpu6050.PatternSineWave,
			ErrorMode:    fault.ModeNone,
			Duration:     Duration(5 * time.Second),
			SampleRateHz: 100,
			EnableFIFO:   true,
			PowerState:   mpu6050.PowerOn,
		},
		{
			Name:             "stress_test",
			Description:      "Stress test with high error rates and fast sampling",
			Pattern:          mpu6050.PatternNoise,
			ErrorMode:        fault.ModeIntermittent,
			ErrorProbability: 0.15,
			Duration:         Duration(10 * time.Second),
			SampleRateHz:     500,
			EnableFIFO:       true,
			EnableInterrupts: true,
			PowerState:       mpu6050.PowerOn,
		},
	}
}

// Find returns the builtin scenario with the given name.
func Find(name string) (Scenario, error) {
	for _, s := range Builtin() {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("unknown scenario %q", name)
}
