package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/pockethle/arm-runtime/dyld"
)

func main() {
	app := &cli.App{
		Name:  "run",
		Usage: "exercise the dynamic linker against a built-in guest image",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Value:   env.Bool("HLE_DEBUG"),
				Usage:   "verbose linker logging",
			},
			&cli.Uint64Flag{
				Name:  "ticks",
				Value: uint64(env.Int("HLE_TICKS", 1024)),
				Usage: "tick budget per engine run",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				dyld.SetLogger(logger)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "demo",
				Usage:  "link the built-in image and call guest functions through their stubs",
				Action: demo,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "a", Value: 6, Usage: "first operand (r0)"},
					&cli.Uint64Flag{Name: "b", Value: 7, Usage: "second operand (r1)"},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "browse the image in a TUI",
					},
				},
			},
			{
				Name:  "inspect",
				Usage: "dump the linked image: stub listings and linker state",
				Action: func(*cli.Context) error {
					return runInspect()
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func demo(c *cli.Context) error {
	if c.Bool("interactive") {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(c.Uint64("ticks"))
	}
	return runDemo(c.Uint64("ticks"), uint32(c.Uint64("a")), uint32(c.Uint64("b")))
}
