package main

import (
	"os"

	"github.com/externref-go/rewriter/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
