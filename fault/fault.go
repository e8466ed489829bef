// Package fault decides, per register access, whether a simulated transport
// failure occurs and which one. Injected failures are the product of this
// simulator, not bugs: given a fixed seed the sequence of faults is fully
// reproducible.
package fault

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the failure family produced when the probability draw hits.
type Mode int

const (
	ModeNone Mode = iota
	ModeDeviceNotFound
	ModeTimeout
	ModeBusError
	ModeCorruptData
	ModeIntermittent
)

var modeNames = map[Mode]string{
	ModeNone:           "none",
	ModeDeviceNotFound: "device_not_found",
	ModeTimeout:        "timeout",
	ModeBusError:       "bus_error",
	ModeCorruptData:    "corrupt_data",
	ModeIntermittent:   "intermittent",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode converts a scenario-file string into a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("unknown error mode %q", s)
}

func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Outcome is the fault resolved for a single register access.
type Outcome int

const (
	// Pass means no fault this time.
	Pass Outcome = iota
	// NotFound fails the operation before the device is touched.
	NotFound
	// Timeout blocks the caller for Injector.TimeoutDelay, then fails.
	Timeout
	// BusFault is an immediate I/O failure.
	BusFault
	// Corrupt lets a read succeed with a random byte; writes are unaffected.
	Corrupt
)

// DefaultTimeoutDelay is the simulated blocking delay of a timed-out
// transaction.
const DefaultTimeoutDelay = 100 * time.Millisecond

// intermittentChance is the extra independent failure layer of
// ModeIntermittent, modeling flaky contacts.
const intermittentChance = 0.3

// Injector draws one uniform random value per logical register access and
// resolves it against the configured mode and probability. It is safe for
// concurrent use.
type Injector struct {
	mu sync.Mutex

	rng         *rand.Rand
	mode        Mode
	probability float64

	// TimeoutDelay is how long a Timeout outcome blocks before failing.
	TimeoutDelay time.Duration
}

// New returns an injector seeded for reproducible draws. A zero seed picks
// a random one.
func New(seed uint64) *Injector {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Injector{
		rng:          rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		TimeoutDelay: DefaultTimeoutDelay,
	}
}

// Configure sets the error mode and base probability (clamped to [0, 1]).
func (i *Injector) Configure(mode Mode, probability float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.mode = mode
	i.probability = min(max(probability, 0), 1)
}

// Mode returns the configured mode and probability.
func (i *Injector) Mode() (Mode, float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode, i.probability
}

// Draw resolves the fault for one register access. It must be called once
// per logical access, never once per burst.
func (i *Injector) Draw() Outcome {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mode == ModeNone || i.probability <= 0 {
		return Pass
	}
	if i.rng.Float64() >= i.probability {
		return Pass
	}
	switch i.mode {
	case ModeDeviceNotFound:
		return NotFound
	case ModeTimeout:
		return Timeout
	case ModeBusError:
		return BusFault
	case ModeCorruptData:
		return Corrupt
	case ModeIntermittent:
		if i.rng.Float64() < intermittentChance {
			return BusFault
		}
		return Pass
	default:
		return Pass
	}
}

// CorruptByte returns the random byte substituted for a corrupted read.
func (i *Injector) CorruptByte() byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return byte(i.rng.UintN(256))
}
