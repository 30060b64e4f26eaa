package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"gateway/internal/infra"
	"gateway/internal/migrations"
)

func main() {
	_, _ = infra.LoadEnvFiles()

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status|version]")
	}
	flag.Parse()
	cmd := "up"
	if flag.NArg() > 0 {
		cmd = strings.ToLower(flag.Arg(0))
	}

	logger := infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", "migrate").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		exitWithError(fmt.Errorf("ping database: %w", err))
	}

	switch cmd {
	case "up":
		err = migrations.Up(ctx, db)
	case "down":
		err = migrations.Down(ctx, db)
	case "status":
		err = migrations.Status(ctx, db)
	case "version":
		var v int64
		v, err = migrations.Version(ctx, db)
		if err == nil {
			fmt.Println(v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		exitWithError(err)
	}
	logger.Info().Str("command", cmd).Msg("migrations done")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
