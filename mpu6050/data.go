package mpu6050

import (
	"math"
	"math/rand/v2"
	"time"
)

// Sample is one complete sensor reading: three accelerometer axes, the die
// temperature and three gyroscope axes, all in raw LSB counts.
type Sample struct {
	AccelX, AccelY, AccelZ int16
	GyroX, GyroY, GyroZ    int16
	Temperature            int16
	Timestamp              time.Time
}

// Bytes returns the 14-byte big-endian FIFO frame of the sample:
// accel (6), temperature (2), gyro (6).
func (s Sample) Bytes() [14]byte {
	var out [14]byte
	words := [7]int16{s.AccelX, s.AccelY, s.AccelZ, s.Temperature, s.GyroX, s.GyroY, s.GyroZ}
	for i, w := range words {
		out[2*i] = byte(uint16(w) >> 8)
		out[2*i+1] = byte(uint16(w))
	}
	return out
}

// Celsius converts the raw temperature word to degrees Celsius.
func (s Sample) Celsius() float64 {
	return float64(s.Temperature)/TempSensitivity - TempOffset
}

// tempRaw converts degrees Celsius to the raw temperature word.
func tempRaw(celsius float64) int16 {
	return clamp16((celsius + TempOffset) * TempSensitivity)
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// The generators below assume a 1kHz nominal sample clock: elapsed time is
// derived from the monotonically increasing sample index, which keeps every
// pattern deterministic for a fixed seed.

func genAccel(p Pattern, axis int, sample uint32, rng *rand.Rand) int16 {
	t := float64(sample) / 1000.0
	var base float64
	if axis == 2 && p != PatternNoise {
		base = AccelLSBPerG // 1g on Z
	}
	switch p {
	case PatternStatic, PatternGravityOnly:
		return clamp16(base)
	case PatternSineWave:
		freq := 1.0 + float64(axis)*0.5
		amp := AccelLSBPerG * 0.1
		return clamp16(base + amp*math.Sin(2*math.Pi*freq*t))
	case PatternNoise:
		noise := (rng.Float64() - 0.5) * 2.0
		return clamp16(noise * AccelLSBPerG * 0.05)
	case PatternRotation:
		// gravity redistributed across axes as the device tilts
		angle := t * 0.5
		switch axis {
		case 0:
			return clamp16(AccelLSBPerG * math.Sin(angle))
		case 1:
			return clamp16(AccelLSBPerG * 0.1 * math.Cos(angle*2))
		default:
			return clamp16(AccelLSBPerG * math.Cos(angle))
		}
	case PatternVibration:
		freq := 50.0 + float64(axis)*10.0
		amp := AccelLSBPerG * 0.02
		return clamp16(base + amp*math.Sin(2*math.Pi*freq*t))
	default:
		return clamp16(base)
	}
}

func genGyro(p Pattern, axis int, sample uint32, rng *rand.Rand) int16 {
	t := float64(sample) / 1000.0
	switch p {
	case PatternStatic, PatternGravityOnly:
		return 0
	case PatternSineWave:
		freq := 0.5 + float64(axis)*0.2
		amp := GyroLSBPerDps * 10.0
		return clamp16(amp * math.Sin(2*math.Pi*freq*t))
	case PatternNoise:
		noise := (rng.Float64() - 0.5) * 2.0
		return clamp16(noise * GyroLSBPerDps)
	case PatternRotation:
		switch axis {
		case 0:
			return clamp16(GyroLSBPerDps * 5.0)
		case 1:
			return clamp16(GyroLSBPerDps * -2.0)
		default:
			return clamp16(GyroLSBPerDps * 10.0 * math.Sin(t))
		}
	case PatternVibration:
		freq := 30.0 + float64(axis)*5.0
		amp := GyroLSBPerDps * 2.0
		return clamp16(amp * math.Sin(2*math.Pi*freq*t))
	default:
		return 0
	}
}

func genTemp(p Pattern, sample uint32, rng *rand.Rand) int16 {
	t := float64(sample) / 1000.0
	celsius := defaultTempC
	switch p {
	case PatternSineWave:
		celsius += 2.0 * math.Sin(2*math.Pi*0.01*t)
	case PatternNoise:
		celsius += rng.Float64() - 0.5
	case PatternRotation, PatternVibration:
		// slight heating from activity
		celsius += 1.0
	}
	return tempRaw(celsius)
}
