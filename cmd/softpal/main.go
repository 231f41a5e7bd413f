package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"github.com/cockroachdb/errors"

	"softpal/internal/softpal/cmd"
	"softpal/internal/softpal/log"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run keeps the deferred cleanup ahead of the exit in main.
func run() (err error) {
	defer log.Close()
	defer log.RecoverPanic("main", func() {
		slog.Error("Application terminated due to unhandled panic")
		err = errors.New("unhandled panic")
	})

	if os.Getenv("SOFTPAL_PROFILE") != "" {
		go func() {
			slog.Info("Serving pprof at localhost:6060")
			if httpErr := http.ListenAndServe("localhost:6060", nil); httpErr != nil {
				slog.Error("Failed to pprof listen", "error", httpErr)
			}
		}()
	}

	return cmd.Execute()
}
