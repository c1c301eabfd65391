package main

import (
	"os"

	"github.com/soyeahso/whatsapp-relay/internal/cli"
	"github.com/tillberg/autorestart"
)

func main() {
	if os.Getenv("WHATSAPP_RELAY_AUTORESTART") != "" {
		go autorestart.RestartOnChange()
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
