package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/pdf-ingest/cmd/pdf-ingest/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:   "pdf-ingest",
		Usage:  "PDF文書をチャンク分割・Embeddingしてベクトルストアに投入する",
		Flags:  commands.IngestFlags(),
		Action: commands.IngestAction,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
