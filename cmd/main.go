package main

import (
	"log"

	"bidding/internal/app"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading configuration from environment")
	}

	app, err := app.NewApp()
	if err != nil {
		log.Fatal(err)
	}

	app.Run()
}
