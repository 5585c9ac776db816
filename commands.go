package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/banshee-data/terrain.report/internal/terraindb"
)

// runMigrateCommand handles the 'migrate' subcommand dispatching
func runMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		printMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	// Open database connection without running schema initialization
	// (migrations will manage the schema)
	database, err := terraindb.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		log.Printf("Running migrations...")
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("All migrations applied successfully")
		showMigrateVersion(database)

	case "down":
		log.Printf("Rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration rolled back successfully")
		showMigrateVersion(database)

	case "status":
		version, dirty, err := database.MigrateVersion()
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		fmt.Printf("Dirty: %v\n", dirty)
		if dirty {
			fmt.Println("\nWARNING: Database is in a dirty state!")
			fmt.Println("A migration failed mid-execution. Inspect the database, fix any")
			fmt.Println("issues, then run: terrain-report migrate force <version>")
		}

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: terrain-report migrate force <version_number>")
		}
		forceVersion, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version number: %s", args[1])
		}
		fmt.Printf("WARNING: Forcing migration version to %d\n", forceVersion)
		fmt.Println("This should only be used to recover from a dirty migration state.")
		if err := database.MigrateForce(forceVersion); err != nil {
			log.Fatalf("Force migration failed: %v", err)
		}
		log.Printf("Migration version forced to %d", forceVersion)

	case "help":
		printMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		printMigrateHelp()
		os.Exit(1)
	}
}

func showMigrateVersion(database *terraindb.DB) {
	version, dirty, _ := database.MigrateVersion()
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
}

func printMigrateHelp() {
	fmt.Println("Usage: terrain-report migrate <action>")
	fmt.Println()
	fmt.Println("Actions:")
	fmt.Println("  up       Apply all pending migrations")
	fmt.Println("  down     Roll back the most recent migration")
	fmt.Println("  status   Show the current migration version")
	fmt.Println("  force    Force the version marker (recovery only)")
	fmt.Println("  help     Show this help")
}
