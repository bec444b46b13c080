package main

import (
	"os"

	"github.com/formdesk/server/cmd/formdeskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
