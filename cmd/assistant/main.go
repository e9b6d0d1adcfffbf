// Package main wires the assistant process lifecycle.
//
// It reads config from flags/env and serves the assistant MCP tools on
// stdio until shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	assistantcmd "github.com/avelione/grimoire.chat/internal/cmd/assistant"
	"github.com/avelione/grimoire.chat/internal/platform/config"
)

func main() {
	cfg, err := assistantcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[ASSISTANT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := assistantcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
