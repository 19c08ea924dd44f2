// Command sgmfm is the batched entry point of spec §6: ingest, reconcile,
// cross-validate and status, run non-interactively against a shared Store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oilfield/sgmfm/internal/logging"
)

// Exit codes (spec §6): 0 success, 1 configuration error, 2 partial
// failure (some files failed but the pipeline completed), 3 fatal error.
const (
	exitSuccess = 0
	exitConfig  = 1
	exitPartial = 2
	exitFatal   = 3
)

func main() {
	logging.Init(isTerminal(os.Stderr), zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if ce, ok := err.(*cliError); ok {
			log.Error().Err(ce.cause).Msg(ce.msg)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}
}

// cliError carries an explicit spec §6 exit code through cobra's plain
// error return, since RunE only gives us an error value.
type cliError struct {
	code  int
	msg   string
	cause error
}

func (e *cliError) Error() string { return e.msg }

func configError(msg string, cause error) error {
	return &cliError{code: exitConfig, msg: msg, cause: cause}
}

func fatalError(msg string, cause error) error {
	return &cliError{code: exitFatal, msg: msg, cause: cause}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
