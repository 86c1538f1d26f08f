package main

import (
	"os"

	"github.com/automoto/herdview/cmd"
	"github.com/automoto/herdview/scenes"
)

func main() {
	if err := cmd.Execute(scenes.Run); err != nil {
		os.Exit(1)
	}
}
