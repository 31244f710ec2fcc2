package main

import (
	"log"

	"github.com/sjzar/mcpkit/cmd/mcpkit"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	mcpkit.Execute()
}
