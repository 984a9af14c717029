package main

import (
	"context"
	"log"
	"os"
	"time"

	"incubator/internal/database"
)

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.ApplyMigrations(ctx, db, database.Migrations()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Print("migrations applied successfully")
}
