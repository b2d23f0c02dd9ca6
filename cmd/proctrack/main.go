package main

import (
	"os"

	"github.com/grovetools/proctrack/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
