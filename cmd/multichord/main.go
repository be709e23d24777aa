// Command multichord hosts a pool of virtual nodes on one UDP endpoint,
// each participating in a 512-bit Chord-style content-addressed overlay.
package main

import (
	"fmt"
	"os"

	"github.com/MasterLogick/MultiChord/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
