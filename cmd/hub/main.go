// Package main starts the dashboard hub process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	hubcmd "github.com/louisbranch/fieldschool/internal/cmd/hub"
	"github.com/louisbranch/fieldschool/internal/platform/config"
)

func main() {
	cfg, err := hubcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[HUB] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hubcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("hub: %v", err)
	}
}
