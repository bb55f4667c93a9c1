package main

import (
	"os"

	"github.com/goplus/modbuilder/cmd/modbuilder/internal"
)

func main() {
	os.Exit(internal.Execute())
}
