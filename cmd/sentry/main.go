package main

import (
	"os"

	"github.com/psops/sentry/cmd/sentry/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
