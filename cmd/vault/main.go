// Command vault runs the interactive end-to-end encrypted note vault CLI.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/notevault/internal/challenge"
	"github.com/dmitrijs2005/notevault/internal/client/cli"
	"github.com/dmitrijs2005/notevault/internal/client/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg, challenge.DefaultConsolePrompter())
	if err != nil {
		log.Fatalf("%v", err)
	}

	go app.StartSyncTimer(ctx, cfg.SyncInterval)
	app.Run(ctx)
}
