// internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// Init connects to Postgres and runs migrations. DATABASE_URL wins when
// set (the seeder and hosted environments use it); otherwise the DSN is
// assembled from the discrete DB_* variables.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := os.Getenv("DB_USER")
		pass := os.Getenv("DB_PASSWORD")
		host := os.Getenv("DB_HOST")
		port := os.Getenv("DB_PORT")
		name := os.Getenv("DB_NAME")

		log.Println("DB_USER:", user)
		log.Println("DB_NAME:", name)
		log.Println("DB_HOST:", host)

		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, pass, host, port, name,
		)
	}

	var err error
	DB, err = sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	// Redistribution runs in a single transaction per volunteer, so a
	// modest pool is plenty.
	DB.SetMaxOpenConns(20)
	DB.SetMaxIdleConns(5)

	if err = DB.Ping(); err != nil {
		log.Fatalf("failed to ping DB: %v", err)
	}

	if err = Migrate(DB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	log.Println("✅ Connected to database")
}
