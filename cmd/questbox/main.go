// Command questbox runs a QuestBox puzzle box.
package main

import (
	"fmt"
	"os"

	"github.com/AaronLay10/QuestBox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "questbox:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
