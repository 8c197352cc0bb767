package main

import (
	"log"

	"github.com/anoixa/watchbox/config"

	"github.com/anoixa/watchbox/cmd"
)

func main() {
	log.Printf("watchbox %s", config.VersionString())
	cmd.Execute()
}
