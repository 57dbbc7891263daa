// Command macrolog runs the macrolog API server and its maintenance commands.
package main

import (
	"os"

	"github.com/heartmarshall/macrolog-backend/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
