// Command sjconv is a JACK convolution effect: each input port is convolved
// with a mono impulse response and written to the matching output port.
//
// Usage:
//
//	sjconv -f hall.wav -p 2
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/sjconv/host/jackhost"
	"github.com/cwbudde/sjconv/internal/app"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := app.Run(ctx, app.Options{
		Name:      "sjconv",
		Version:   version,
		Args:      os.Args[1:],
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Connector: jackhost.Connector{},
	})
	stop()
	os.Exit(code)
}
