package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"scalper-core/internal/api"
	"scalper-core/internal/engine"
	"scalper-core/internal/events"
	"scalper-core/internal/monitor"
	"scalper-core/pkg/config"
	"scalper-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("scalper-core starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()

	eng, err := engine.New(ctx, cfg, database, bus)
	if err != nil {
		log.Fatalf("build session: %v", err)
	}

	writer := &monitor.Writer{DB: database, Bus: bus}
	go writer.Run(ctx)

	eng.Start(ctx)

	server := api.NewServer(eng, database)
	go func() {
		if err := server.Run(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()
	log.Printf("api listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutdown signal received")
	cancel()
	log.Println("scalper-core stopped")
}
