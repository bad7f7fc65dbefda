// Command litertlm serves and drives LiteRT-LM models: an HTTP server plus
// chat, batch, bench and models subcommands.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}
