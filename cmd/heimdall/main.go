package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bifrostlabs/heimdall/internal/app"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is a development convenience; in production everything
	// comes from real environment variables.
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "database" {
		if err := runDatabaseCommand(cfg, os.Args[2:]); err != nil {
			log.Fatalf("database command failed: %v", err)
		}
		return
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// runDatabaseCommand handles `heimdall database setup [-seed]`: it creates
// the schema and optionally seeds development credentials.
func runDatabaseCommand(cfg app.Config, args []string) error {
	if len(args) == 0 || args[0] != "setup" {
		return fmt.Errorf("usage: heimdall database setup [-seed]")
	}

	fs := flag.NewFlagSet("database setup", flag.ExitOnError)
	seed := fs.Bool("seed", false, "insert development credentials after migrating")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = application.Store().Close() }()

	// app.New already applied migrations, only seeding is left.
	if *seed {
		if err := application.SeedDatabase(context.Background()); err != nil {
			return err
		}
		application.Logger().Info("database seeded")
	}

	application.Logger().Info("database ready")
	return nil
}
