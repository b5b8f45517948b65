package main

import (
	"context"
	"log"
	"time"

	"taskboard-backend/internal/config"
	"taskboard-backend/internal/database"
	"taskboard-backend/internal/presence"
	"taskboard-backend/internal/server"
)

func main() {
	cfg := config.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close(db)

	if err := database.Ping(db); err != nil {
		log.Fatalf("Database ping failed: %v", err)
	}
	log.Printf("Database connected successfully")

	// Presence mirror is optional; the relay runs without it.
	var mirror *presence.Manager
	if cfg.Redis.Addr != "" {
		mirror, err = presence.NewManager(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Server.ServerID)
		if err != nil {
			log.Printf("Presence mirror disabled: %v", err)
			mirror = nil
		} else {
			defer mirror.Close()

			// Presence is rebuilt from nothing on every start.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := mirror.Reset(ctx); err != nil {
				log.Printf("Presence mirror reset failed: %v", err)
			}
			cancel()
		}
	} else {
		log.Println("Presence mirror not configured")
	}

	srv := server.New(cfg, db, mirror)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
