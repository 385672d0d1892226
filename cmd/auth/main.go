package main

import (
	"log"

	"github.com/aussiebroadwan/cityauth/internal/auth/app"
)

func main() {
	if err := app.LoadEnvFile(".env"); err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
