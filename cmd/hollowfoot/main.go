// Command hollowfoot runs XAFS analysis recipes.
package main

import (
	"os"

	"github.com/kbukum/hollowfoot/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
