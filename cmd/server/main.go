package main

import (
	"flag"
	"log"

	"FabTracker/internal/database"
	"FabTracker/internal/server"
	"FabTracker/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.yml", "Path to the config file")
	flag.Parse()

	cfg := config.LoadConfig(*configPath)

	repo := database.InitDB(cfg.Database.Path)
	defer repo.Close()

	log.Println("Starting tracker API server...")
	server.Start(repo, cfg)
}
