package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/fadedpez/numberledger/internal/logging"
	"github.com/fadedpez/numberledger/pkg/db/migrations"
)

const defaultMigrationsDir = "pkg/db/migrations/sql"

func main() {
	// Define command-line flags
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	// Create command options
	migrationsDir := createCmd.String("dir", defaultMigrationsDir, "Directory to store migrations")

	// Migrate command options
	dbPath := migrateCmd.String("db", "data/ledger.db", "Path to SQLite database")
	migrateDir := migrateCmd.String("dir", defaultMigrationsDir, "Directory containing migrations")

	log := logging.New(logging.Options{Service: "migration", Development: true}).Component("migration")

	// Show usage if no arguments provided
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	switch os.Args[1] {
	case "create":
		createCmd.Parse(os.Args[2:])
		if createCmd.NArg() < 1 {
			fmt.Println("Error: Missing migration description")
			createCmd.Usage()
			os.Exit(1)
		}
		createNewMigration(log, *migrationsDir, createCmd.Arg(0))

	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		applyMigrations(log, *dbPath, *migrateDir)

	case "help":
		printUsage()

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run cmd/migration/main.go create DESCRIPTION  - Create a new migration")
	fmt.Println("  go run cmd/migration/main.go migrate            - Apply pending migrations")
	fmt.Println("  go run cmd/migration/main.go help              - Show this help")
	fmt.Println("\nExamples:")
	fmt.Println("  go run cmd/migration/main.go create \"add payout table\"")
	fmt.Println("  go run cmd/migration/main.go migrate -db data/ledger.db")
}

func createNewMigration(log zerolog.Logger, migrationsDir, description string) {
	filePath, err := migrations.NewDirMigrator(nil, migrationsDir, log).CreateMigration(description)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating migration")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading migration file")
	}

	// Amounts are stored as TEXT decimals; keep new columns consistent
	examples := `
-- Money columns hold decimal strings, e.g.
--   ALTER TABLE wallets ADD COLUMN hold TEXT NOT NULL DEFAULT '0';
-- Add indexes for every new lookup path:
--   CREATE INDEX IF NOT EXISTS idx_table_column ON table_name(column_name);

-- Your migration SQL goes below this line:

`
	if err := os.WriteFile(filePath, append(content, examples...), 0644); err != nil {
		log.Fatal().Err(err).Msg("error writing migration file")
	}

	log.Info().Str("file", filePath).Msg("created migration file")
}

func applyMigrations(log zerolog.Logger, dbPath, migrationsDir string) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatal().Err(err).Msg("error creating database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening database")
	}
	defer db.Close()

	if err := migrations.NewDirMigrator(db, migrationsDir, log).MigrateUp(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}

	log.Info().Str("db_path", dbPath).Msg("migrations applied")
}
