// Command neso builds the blinky design for the Numato Lab Neso and loads it
// into the FPGA.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/boards/neso"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/build"
	"github.com/OpenTraceLab/OpenTraceFPGA/pkg/hdl"
)

type options struct {
	dir      string
	revision string
	flash    bool
	noProg   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "build-dir", "build", "build directory")
	flag.StringVar(&opts.revision, "revision", "v2", "board revision (v1 or v2)")
	flag.BoolVar(&opts.flash, "flash", false, "write the configuration flash instead of SRAM")
	flag.BoolVar(&opts.noProg, "no-program", false, "build only")
	flag.Parse()

	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, build.ExecRunner{}, zapr.NewLogger(zl), opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runner build.Runner, log logr.Logger, opts options) error {
	rev, err := neso.ParseRevision(opts.revision)
	if err != nil {
		return err
	}
	platform, err := neso.New(
		neso.WithRevision(rev),
		neso.WithProgramFlash(opts.flash),
		neso.WithRunner(runner),
		neso.WithLogger(log),
	)
	if err != nil {
		return err
	}
	_, err = build.Build(ctx, platform, hdl.Blinky{}, build.BuildOptions{
		Dir:     opts.dir,
		Program: !opts.noProg,
		Runner:  runner,
		Logger:  log,
	})
	return err
}
