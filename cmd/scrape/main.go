// cmd/scrape/main.go
// Scrapes race results into the database and maintains the stored races.
//
// Usage:
//
//	go run ./cmd/scrape run
//	go run ./cmd/scrape cleanup --days 547 --apply
//	go run ./cmd/scrape dedupe --apply
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/padraicbc/cyclingapi/cmd/scrape/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
