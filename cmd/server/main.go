package main

import (
	"log"

	"github.com/formdesk/server/internal/config"
	"github.com/formdesk/server/internal/server"
	"github.com/formdesk/server/pkg/logger"
)

func main() {
	logger.Init()

	cfg := config.Load()
	if err := server.Run(cfg); err != nil {
		log.Fatal(err)
	}
}
