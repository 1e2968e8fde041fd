package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/graphfleet/sgclient/querier"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newQuerier := func(cfg *querier.Config, out io.Writer) (Runner, error) {
		return querier.New(cfg, out)
	}
	if err := NewCmd(newQuerier).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
