package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/graduationparty/auth-service/internal/server"
	"github.com/graduationparty/auth-service/internal/server/config"
)

func main() {

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
