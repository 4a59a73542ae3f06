package main

import (
	"os"

	"github.com/rooney/tree-sitter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
