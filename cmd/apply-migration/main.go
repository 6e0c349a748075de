package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/common/database"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/config"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
)

// Usage:
//
//	apply-migration                 apply the built-in schema for DB_DRIVER
//	apply-migration <file.sql>      apply an extra migration file
func main() {
	cfg := config.Load()

	dialect, err := repository.DialectForDriver(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Unsupported DB_DRIVER: %v", err)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database (%s)\n\n", cfg.Database.Driver)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var script string
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to read migration file: %v", err)
		}
		script = string(b)
	} else if script, err = repository.Schema(dialect); err != nil {
		log.Fatalf("Failed to load built-in schema: %v", err)
	}

	statements := repository.SplitStatements(script)
	for i, stmt := range statements {
		fmt.Printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := db.ExecContext(ctx, dialect.Rebind(stmt)); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt[:min(100, len(stmt))])
		}
	}

	fmt.Println("Migration completed successfully")
}
