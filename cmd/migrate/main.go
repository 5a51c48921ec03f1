package main

import (
	"flag"
	"log"
	"os"

	"mailadmin-service/internal/db/migrate"

	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	dsn := flag.String("dsn", "", "database url (defaults to DATABASE_URL)")
	flag.Parse()

	_ = godotenv.Load()
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}

	if err := migrate.Run(*dsn, *direction); err != nil {
		log.Fatalf("migration %s failed: %v", *direction, err)
	}
	log.Printf("migration %s complete", *direction)
}
