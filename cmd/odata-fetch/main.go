// Command odata-fetch queries an OData v3 service and prints the results as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/odata-client/pkg/odata"
)

func main() {
	// A missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to distinct process exit codes.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch odata.KindOf(err) {
	case odata.KindConstruction, odata.KindURL:
		return 2
	case odata.KindHTTPStatus:
		return 3
	case odata.KindTransport:
		return 4
	case odata.KindDecode, odata.KindPagination:
		return 5
	default:
		return 1
	}
}
