package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/terrain.report/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	dbFile       = flag.String("db", "terrain_data.db", "Path to the sqlite database")
	elevationURL = flag.String("elevation-url", "http://localhost:9090", "Base URL of the elevation tile service")
	configPath   = flag.String("config", "", "Path to a tuning config JSON file")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			// fall through to the server below

		case "migrate":
			runMigrateCommand(args[1:], *dbFile)
			return

		case "version":
			fmt.Printf("terrain-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
			return

		case "help":
			printUsage()
			return

		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
			printUsage()
			os.Exit(1)
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	runServer()
}

func printUsage() {
	fmt.Println("Usage: terrain-report [flags] [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Run the detection API server (default)")
	fmt.Println("  migrate   Manage database schema migrations")
	fmt.Println("  version   Print version information")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
