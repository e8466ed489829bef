package mpu6050

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern selects how sensor samples are generated.
type Pattern int

const (
	PatternStatic Pattern = iota
	PatternSineWave
	PatternNoise
	PatternGravityOnly
	PatternRotation
	PatternVibration
)

var patternNames = map[Pattern]string{
	PatternStatic:      "static",
	PatternSineWave:    "sine_wave",
	PatternNoise:       "noise",
	PatternGravityOnly: "gravity_only",
	PatternRotation:    "rotation",
	PatternVibration:   "vibration",
}

func (p Pattern) String() string {
	if name, ok := patternNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePattern converts a scenario-file string into a Pattern.
func ParsePattern(s string) (Pattern, error) {
	for p, name := range patternNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return PatternStatic, fmt.Errorf("unknown data pattern %q", s)
}

func (p Pattern) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	pattern, err := ParsePattern(s)
	if err != nil {
		return err
	}
	*p = pattern
	return nil
}

// PowerState models the PWR_MGMT_1 power modes. Sample generation is frozen
// while Off or Sleep.
type PowerState int

const (
	PowerOff PowerState = iota
	PowerSleep
	PowerCycle
	PowerOn
)

var powerNames = map[PowerState]string{
	PowerOff:   "off",
	PowerSleep: "sleep",
	PowerCycle: "cycle",
	PowerOn:    "on",
}

func (s PowerState) String() string {
	if name, ok := powerNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParsePowerState converts a scenario-file string into a PowerState.
func ParsePowerState(v string) (PowerState, error) {
	for s, name := range powerNames {
		if name == strings.ToLower(strings.TrimSpace(v)) {
			return s, nil
		}
	}
	return PowerOff, fmt.Errorf("unknown power state %q", v)
}

func (s PowerState) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *PowerState) UnmarshalYAML(value *yaml.Node) error {
	// unquoted on/off may carry a !!bool tag, so take the raw scalar
	state, err := ParsePowerState(value.Value)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// active reports whether sample generation runs in this state.
func (s PowerState) active() bool {
	return s == PowerOn || s == PowerCycle
}
