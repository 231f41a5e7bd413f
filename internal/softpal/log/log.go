package log

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"softpal/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
	closer      io.Closer
)

// Setup installs the charm logger as the slog default. debug, or
// SOFTPAL_LOG_LEVEL=debug, selects the debug level with caller reporting.
// Only the first call has an effect.
func Setup(debug bool) {
	initOnce.Do(func() {
		lg := newLogger(debug)
		closer = lg

		slog.SetDefault(slog.New(lg.Logger))
		initialized.Store(true)
	})
}

func newLogger(debug bool) *logging.LoggerCloser {
	lg := logging.NewLogger()
	if debug || logging.IsDebug() {
		lg.SetLevel(charmlog.DebugLevel)
		lg.SetReportCaller(true)
	}
	return lg
}

func Initialized() bool {
	return initialized.Load()
}

// Close releases the log file, if any.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
