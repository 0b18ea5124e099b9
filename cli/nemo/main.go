// Package main is the CLI command itself.
package main

import (
	"log"
	"os"

	nemocli "github.com/standardgalactic/neural-mesh/cli"
)

func main() {
	app := nemocli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
