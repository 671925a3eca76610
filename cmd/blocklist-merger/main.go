package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/WangYihang/Blocklist-Merger/pkg/common"
	"github.com/WangYihang/Blocklist-Merger/pkg/interface/cli"
	"github.com/WangYihang/Blocklist-Merger/pkg/interface/presenter"
)

func main() {
	// Parse command line flags
	config, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if config.Version {
		fmt.Println(common.PV.String())
		return
	}

	// Assemble the merge run with all dependencies
	app, err := cli.NewAssembler(config, os.Stderr).Assemble()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Cancel the run on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted, no output was written")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}

	width, _ := common.TerminalWidth()
	fmt.Fprintln(os.Stderr, presenter.Summary(report, width))
}
