package main

import (
	"database/sql"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/config"
	"field-route-service/internal/platform/db"
	"log"
)

// dbtool prepares a database outside the server: it creates the schema and
// loads the customer seed file for either driver.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	seedPath := cfg.SeedPath
	if seedPath == "" {
		seedPath = "data/seeds/customers.json"
	}
	initAndSeed(conn, cfg.DBDriver, seedPath)
}

func initAndSeed(conn *sql.DB, dialect db.Dialect, seedPath string) {
	log.Printf("Initializing database schema driver=%s...", dialect)
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Printf("Seeding customers from %s...", seedPath)
	if err := repositories.SeedCustomersFromJSON(conn, dialect, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
