// Command migrate applies price store schema migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ajitpratap0/alpinist/internal/config"
	"github.com/ajitpratap0/alpinist/internal/db"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	command := flag.String("command", "migrate", "migrate or status")
	migrationsDir := flag.String("migrations", "migrations", "path to migrations directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)

	database, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pinging database: %v\n", err)
		os.Exit(1)
	}

	migrator := db.NewMigrator(database, *migrationsDir)

	switch *command {
	case "migrate":
		if err := migrator.Migrate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	case "status":
		version, err := migrator.CurrentVersion(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading version: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("schema version: %d\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *command)
		os.Exit(1)
	}
}
