package main

import (
	"os"

	"github.com/Parnalkhole/ExtractTransformLoadGDP/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
