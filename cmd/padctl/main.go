// padctl is the terminal controller for a remotepad host.
package main

import (
	"fmt"
	"os"

	"remotepad/internal/client"
)

func main() {
	app := client.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
