package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/marcelocantos/sqlops/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCmd(version).ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "sqlops: %v\n", err)
	var exit *cli.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}
