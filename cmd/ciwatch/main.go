package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch containers and minimal CI images

	"github.com/ericfisherdev/ciwatch/internal/adapter/driving/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersion(Version)

	// Ctrl-C interrupts the current poll sleep instead of waiting it out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, os.Args[1:])
	if err == nil {
		return cli.ExitSuccess
	}

	var exitErr *cli.ExitCodeError
	if !errors.As(err, &exitErr) || exitErr.Err != nil {
		fmt.Fprintln(os.Stderr, "ciwatch:", err)
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return cli.ExitCode(err)
}
