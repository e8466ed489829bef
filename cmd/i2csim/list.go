package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2csim/cmd/i2csim/console"
	"github.com/mklimuk/i2csim/scenario"
)

var listCmd = cli.Command{
	Name:  "list",
	Usage: "list builtin test scenarios",
	Action: func(c *cli.Context) error {
		for _, s := range scenario.Builtin() {
			console.Printf("%s - %s\n", console.Bold(s.Name), s.Description)
			console.Printf("  pattern %s, error %s (%.1f%%), %s at %d Hz, fifo %s, interrupts %s\n",
				s.Pattern, s.ErrorMode, s.ErrorProbability*100,
				s.Duration.Duration(), s.SampleRateHz,
				enabled(s.EnableFIFO), enabled(s.EnableInterrupts))
		}
		return nil
	},
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
