package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2csim/bus"
	"github.com/mklimuk/i2csim/cmd/i2csim/console"
	"github.com/mklimuk/i2csim/metrics"
	"github.com/mklimuk/i2csim/scenario"
)

var runCmd = cli.Command{
	Name:  "run",
	Usage: "run test scenarios against a simulated MPU-6050",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "load scenarios from a yaml file instead of the builtin suite",
		},
		&cli.StringSliceFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "run only the named scenarios",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "seed for reproducible fault sequences (0 = random)",
		},
		&cli.DurationFlag{
			Name:  "latency",
			Value: bus.DefaultLatency,
			Usage: "simulated per-transaction latency",
		},
		&cli.Float64Flag{
			Name:  "noise",
			Value: 0.01,
			Usage: "bus noise level (0.0-1.0)",
		},
	},
	Action: func(c *cli.Context) error {
		scenarios, err := selectScenarios(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		failed := 0
		start := time.Now()
		for _, s := range scenarios {
			b := bus.New("i2c-0",
				bus.WithSeed(c.Uint64("seed")),
				bus.WithLatency(c.Duration("latency")))
			if err := b.SetNoise(c.Float64("noise")); err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}

			console.PInfof(console.PictoPin, "scenario %s: %s", console.Bold(s.Name), s.Description)
			res, err := scenario.NewRunner(s, b).Run(ctx)
			if err != nil {
				console.Errorf("scenario %s did not run: %s", s.Name, console.Red(err))
				failed++
				continue
			}
			printResult(res)
			if !res.Passed() {
				failed++
			}
			if ctx.Err() != nil {
				console.PInfof(console.PictoStop, "interrupted")
				break
			}
		}

		console.PInfof(console.PictoFinish, "%d scenarios in %s, %s failed",
			len(scenarios), time.Since(start).Round(time.Millisecond), console.Bold(failed))
		if failed > 0 {
			return console.Exit(1, "%s scenario(s) failed", console.Red(failed))
		}
		return nil
	},
}

func selectScenarios(c *cli.Context) ([]scenario.Scenario, error) {
	var scenarios []scenario.Scenario
	var err error
	if path := c.String("file"); path != "" {
		scenarios, err = scenario.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		scenarios = scenario.Builtin()
	}
	names := c.StringSlice("scenario")
	if len(names) == 0 {
		return scenarios, nil
	}
	byName := make(map[string]scenario.Scenario, len(scenarios))
	for _, s := range scenarios {
		byName[s.Name] = s
	}
	picked := make([]scenario.Scenario, 0, len(names))
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		picked = append(picked, s)
	}
	return picked, nil
}

func printResult(res *scenario.Result) {
	verdict := console.Green("PASSED")
	if !res.Passed() {
		verdict = console.Red("FAILED")
	}
	console.Printf("%s %s: %d samples, %d ok, %d failed (%s)\n",
		verdict, res.Scenario.Name, res.Samples, res.Success, res.Failed, res.State)
	for _, w := range res.Warnings {
		console.Warn(w)
	}
	for _, f := range res.Failures {
		console.Error(f)
	}
	printMetrics(res.Metrics, res.Elapsed)
}

func printMetrics(m metrics.Metrics, elapsed time.Duration) {
	console.PInfof(console.PictoGauge, "reads %d, writes %d, errors %d, timeouts %d",
		m.TotalReads, m.TotalWrites, m.ErrorsInjected, m.Timeouts)
	console.Printf("  response µs: avg %.2f, min %d, max %d\n",
		m.AvgResponseMicros, m.MinResponseMicros, m.MaxResponseMicros)
	if m.TotalOps() > 0 {
		console.Printf("  error rate %.2f%%, throughput %.2f ops/s\n",
			m.ErrorRate()*100, m.Throughput(elapsed))
	}
}
