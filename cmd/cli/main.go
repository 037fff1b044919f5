package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/volunteerhub/internal/buildinfo"
	"github.com/dmitrijs2005/volunteerhub/internal/client/cli"
	"github.com/dmitrijs2005/volunteerhub/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
