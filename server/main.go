package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/config"
	"github.com/meikuraledutech/flow/editor"
	"github.com/meikuraledutech/flow/postgres"
)

func main() {
	path := os.Getenv("FLOW_CONFIG")
	if path == "" {
		path = "flow.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store flow.Store = postgres.New(pool)
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	ed := editor.New(
		editor.WithLogger(log.Default()),
		editor.WithHistorySize(cfg.Editor.HistorySize),
	)
	if err := ed.Load(ctx, store); err != nil {
		log.Fatalf("load: %v", err)
	}

	app := newApp(ed, store)
	log.Fatal(app.Listen(cfg.Server.Addr))
}
