package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/yudhasubki/spinmutex"
)

type Run struct{}

func (r *Run) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("spinmutex-run", flag.ContinueOnError)
	path := register(fs)
	fs.Usage = r.Usage

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := ReadConfigFile(*path)
	if err != nil {
		return err
	}

	_, err = spinmutex.New[uint32](cfg.Stress.Stress()).Run(ctx)
	return err
}

func (r *Run) Usage() {
	fmt.Printf(`
The run command spawns the configured workers, waits for all of them and
checks the final count.

Usage:
	spinmutex run [arguments]

Arguments:
	-config PATH
	    Specifies the configuration file. Defaults apply when omitted.
`[1:],
	)
}
