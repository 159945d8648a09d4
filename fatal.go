package binrec

import (
	"context"
	"os"
	"sync/atomic"
)

// FailureHandler sees every terminal error of a file before it is returned.
// name is the file name and op the failed operation.
type FailureHandler func(name, op string, err error)

var (
	osExit = os.Exit
	exit   = osExit
)

// FatalHandler returns a FailureHandler that logs the error, closes every
// file of registry and terminates the process with status 1.
//
// Errors raised while the registry is drained are ignored.
func FatalHandler(logger *Logger, registry *Registry) FailureHandler {
	if logger == nil {
		logger = NoopLogger()
	}
	var fired atomic.Bool
	return func(name, op string, err error) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		logger.LogFatal(context.Background(), name, op, err)
		if registry != nil {
			if cerr := registry.CloseAll(); cerr != nil {
				logger.Error("closing open record files", "error", cerr)
			}
		}
		exit(1)
	}
}
