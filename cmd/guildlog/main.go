// Command guildlog runs the guild event logging bot.
package main

import (
	"os"
)

var version = "dev"

func main() {
	cmd := newRootCmd()
	cmd.Version = version
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
