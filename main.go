// Package main is the entry point for the vidgate application.
package main

import (
	"github.com/samber/lo"

	"github.com/vidgate/vidgate/cmd"
	"github.com/vidgate/vidgate/config"
	"github.com/vidgate/vidgate/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
