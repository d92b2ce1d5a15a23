package main

import (
	"os"

	"github.com/mnubo/Mnubo.SmartObjects.Client-sub001/cmd/smartobjects-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
