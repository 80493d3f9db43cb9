package main

import (
	"github.com/cesoptools/cesopgen/cmd"
)

func main() {
	cmd.Execute()
}
