package main

import (
	"os"

	"github.com/sundaylabs/sunday-server/journalservice"
)

func main() {
	if err := journalservice.Run(); err != nil {
		os.Exit(1)
	}
}
