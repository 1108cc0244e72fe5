package main

import (
	"context"
	"log"

	"smartlife/client/internal/config"
	"smartlife/client/internal/storage"
)

func main() {
	cfg := config.Load()
	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	reset, err := storage.EnsureFormatVersion(context.Background(), store, storage.FormatVersion)
	if err != nil {
		log.Fatalf("check storage format: %v", err)
	}
	if reset {
		log.Printf("storage format changed, cleared %s", cfg.DBPath)
	}

	log.Println("migrations applied successfully")
}
