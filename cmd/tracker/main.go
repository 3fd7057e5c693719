package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FabTracker/internal/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	task := flag.String("task", "run", "Task to run: run (scheduler loop), check (single full pass), currency (set global currency)")
	configPath := flag.String("config", "config.yml", "Path to the config file")
	currency := flag.String("value", "", "Currency code for the currency task, e.g. USD or EUR")
	flag.Parse()

	application := app.New(*configPath)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Running task: %s", *task)

	switch *task {
	case "run":
		// Blocks until shutdown, firing a full pass per tenant schedule.
		if err := application.RunScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Scheduler stopped: %v", err)
		}

	case "check":
		// One full pass over every tracked seller, then exit.
		if err := application.RunCheckAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Check pass failed: %v", err)
		}

	case "currency":
		if *currency == "" {
			log.Fatal("The currency task needs -value, e.g. -value USD")
		}
		if err := application.Repo.SetGlobalCurrency(*currency); err != nil {
			log.Fatalf("Failed to set currency: %v", err)
		}
		log.Printf("Global currency set to %s", *currency)

	default:
		log.Fatalf("Unknown task: %s.", *task)
	}
}
