package grace

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func ExitOrLog(err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

// SuccessRequired aborts the process when a required startup step failed.
func SuccessRequired(err error, message string) {
	if err != nil {
		log.Fatalf("%v: %v", message, err)
	}
}

// SetupSignalHandler returns a context that is cancelled on the first
// SIGINT/SIGTERM. A second signal exits immediately without waiting for
// cleanup to finish.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signals
		cancel()
		<-signals
		os.Exit(1)
	}()

	return ctx
}
