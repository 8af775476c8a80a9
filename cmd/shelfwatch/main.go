package main

import (
	"log"

	"github.com/MrSnakeDoc/shelfwatch/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ shelfwatch failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ shelfwatch stopped with error: %v", err)
	}
}
