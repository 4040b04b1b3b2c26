package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/habedi/petcli/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configureLogLevelFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, cancel, func(msg string) { log.Warn().Msg(msg) }, os.Exit)

	code := cmd.Execute(ctx)
	cancel()
	os.Exit(code)
}

// configureLogLevelFromEnv enables debug logging to stderr when DEBUG_PETCLI
// is set to anything but "", "0" or "false". Logging is off otherwise.
func configureLogLevelFromEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG_PETCLI"))) {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 2)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	return stopChan
}

// handleInterrupt cancels in-flight requests on the first signal and exits on
// the second.
func handleInterrupt(stopChan <-chan os.Signal, cancel context.CancelFunc, logFn func(string), exitFn func(int)) {
	<-stopChan
	logFn("Interrupt signal received. Cancelling...")
	cancel()

	<-stopChan
	logFn("Second interrupt signal received. Exiting...")
	exitFn(130)
}
