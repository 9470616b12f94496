package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/pwvault/internal/cli"
	"github.com/dmitrijs2005/pwvault/internal/config"
)

func main() {
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)
	os.Exit(app.Execute(context.Background(), os.Args[1:]))
}
