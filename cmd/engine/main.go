// Command engine runs the signal and decision engine from the command line.
//
//	engine analyze <home> <away> [--referee R] [--opponent-style S]
//	engine scan-shorts [--min-prob N]
//	engine backtest --from YYYY-MM-DD --to YYYY-MM-DD
//	engine resolve
//
// Exit codes: 0 success, 2 missing data, 3 I/O failure, 4 invalid arguments.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, openApp)
	stop()
	os.Exit(code)
}
