package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2csim"
	"github.com/mklimuk/i2csim/bus"
	"github.com/mklimuk/i2csim/cmd/i2csim/console"
	"github.com/mklimuk/i2csim/fault"
	"github.com/mklimuk/i2csim/mpu6050"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive register shell on a simulated bus",
	Flags: []cli.Flag{
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "seed for reproducible fault sequences (0 = random)",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		b := bus.New("i2c-0", bus.WithSeed(c.Uint64("seed")), bus.WithLatency(0))
		if err := b.Add(ctx, mpu6050.Address, i2csim.KindMPU6050); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		console.Infof("mpu6050 attached at %s, type 'help' for commands", console.White(fmt.Sprintf("%#02x", mpu6050.Address)))

		rl, err := readline.New(console.Bold("i2csim> "))
		if err != nil {
			return console.Exit(1, "readline init failed: %s", console.Red(err))
		}
		defer rl.Close()

		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "exit" {
				return nil
			}
			if err := dispatch(ctx, b, fields); err != nil {
				console.Errorf("%s", console.Red(err))
			}
		}
	},
}

func dispatch(ctx context.Context, b *bus.Bus, fields []string) error {
	dev, err := b.MPU6050(mpu6050.Address)
	if err != nil {
		return err
	}
	switch fields[0] {
	case "help":
		printHelp()
		return nil
	case "read":
		reg, err := parseByte(fields, 1)
		if err != nil {
			return err
		}
		v, err := b.ReadByte(ctx, mpu6050.Address, reg)
		if err != nil {
			return err
		}
		console.Printf("%#02x = %s\n", reg, console.White(fmt.Sprintf("%#02x", v)))
		return nil
	case "write":
		reg, err := parseByte(fields, 1)
		if err != nil {
			return err
		}
		val, err := parseByte(fields, 2)
		if err != nil {
			return err
		}
		return b.WriteByte(ctx, mpu6050.Address, reg, val)
	case "burst":
		reg, err := parseByte(fields, 1)
		if err != nil {
			return err
		}
		n, err := parseInt(fields, 2)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if err := b.ReadBurst(ctx, mpu6050.Address, reg, buf); err != nil {
			return err
		}
		console.Printf("% x\n", buf)
		return nil
	case "data":
		s := dev.Data()
		console.PInfof(console.PictoThermometer, "%.2f °C", s.Celsius())
		console.Printf("accel: %6d %6d %6d  (LSB, %d/g)\n", s.AccelX, s.AccelY, s.AccelZ, mpu6050.AccelLSBPerG)
		console.Printf("gyro:  %6d %6d %6d  (LSB, %.0f/°/s)\n", s.GyroX, s.GyroY, s.GyroZ, mpu6050.GyroLSBPerDps)
		return nil
	case "pattern":
		if len(fields) < 2 {
			console.Printf("pattern: %s\n", dev.Pattern())
			return nil
		}
		p, err := mpu6050.ParsePattern(fields[1])
		if err != nil {
			return err
		}
		dev.SetPattern(p)
		return nil
	case "power":
		if len(fields) < 2 {
			console.Printf("power: %s\n", dev.PowerState())
			return nil
		}
		s, err := mpu6050.ParsePowerState(fields[1])
		if err != nil {
			return err
		}
		dev.SetPowerState(s)
		return nil
	case "error":
		if len(fields) < 3 {
			mode, p := dev.ErrorMode()
			console.Printf("error mode: %s (%.1f%%)\n", mode, p*100)
			return nil
		}
		mode, err := fault.ParseMode(fields[1])
		if err != nil {
			return err
		}
		p, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("invalid probability %q: %w", fields[2], err)
		}
		dev.SetErrorMode(mode, p)
		return nil
	case "fifo":
		if len(fields) > 1 {
			switch fields[1] {
			case "on":
				dev.EnableFIFO(true)
			case "off":
				dev.EnableFIFO(false)
			case "reset":
				dev.ResetFIFO()
			case "drain":
				buf := make([]byte, 64)
				n := dev.DrainFIFO(buf)
				console.Printf("% x\n", buf[:n])
			default:
				return fmt.Errorf("unknown fifo action %q", fields[1])
			}
			return nil
		}
		console.Printf("fifo: %d bytes, overflow %v\n", dev.FIFOCount(), dev.FIFOOverflow())
		return nil
	case "metrics":
		printMetrics(b.Metrics().Snapshot(), 0)
		return nil
	case "reset":
		answer, err := console.YesOrNo("reset device to power-on defaults?")
		if err != nil {
			return err
		}
		if answer == console.Yes {
			dev.Reset()
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseByte(fields []string, idx int) (byte, error) {
	if len(fields) <= idx {
		return 0, fmt.Errorf("missing argument")
	}
	v, err := strconv.ParseUint(fields[idx], 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q: %w", fields[idx], err)
	}
	return byte(v), nil
}

func parseInt(fields []string, idx int) (int, error) {
	if len(fields) <= idx {
		return 0, fmt.Errorf("missing argument")
	}
	v, err := strconv.Atoi(fields[idx])
	if err != nil || v <= 0 || v > 256 {
		return 0, fmt.Errorf("invalid count %q", fields[idx])
	}
	return v, nil
}

func printHelp() {
	console.Print("read <reg>            read one register")
	console.Print("write <reg> <val>     write one register")
	console.Print("burst <reg> <n>       read n consecutive registers")
	console.Print("data                  show the current sample")
	console.Print("pattern [name]        get or set the data pattern")
	console.Print("power [state]         get or set the power state")
	console.Print("error [mode] [p]      get or set fault injection")
	console.Print("fifo [on|off|reset|drain]")
	console.Print("metrics               show bus counters")
	console.Print("reset                 restore power-on defaults")
	console.Print("quit")
}
