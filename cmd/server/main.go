package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/ekhaya-pos/api/internal/config"
	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/router"
	"github.com/ekhaya-pos/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting server on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
