package main

import (
	"os"

	"github.com/studystack/campusrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
