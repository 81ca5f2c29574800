package main

import (
	"os"

	"github.com/temirov/upkeep/cmd/cli"
	"github.com/temirov/upkeep/internal/ui"
)

// main runs upkeep and exits with status 1 on any failure.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		ui.NewConsole(os.Stderr).Failure(executionError.Error())
		os.Exit(1)
	}
}
