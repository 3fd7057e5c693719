package server

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"FabTracker/internal/database"
	"FabTracker/internal/models"
	"FabTracker/pkg/config"
	"FabTracker/utils"
)

var startTime = time.Now()

// Start exposes the tracker's state over a small read-only API.
func Start(repo *database.DBRepository, cfg *config.Config) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", withAuth(cfg, productsHandler(repo)))
	mux.HandleFunc("/sellers", withAuth(cfg, sellersHandler(repo)))
	mux.HandleFunc("/status", withAuth(cfg, statusHandler(repo)))

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting API server on port %s", port)
	log.Printf("Endpoints available at http://localhost:%s/{products,sellers,status}", port)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// withAuth checks the configured API key when one is set. An empty key
// leaves the API open, matching a local-only deployment.
func withAuth(cfg *config.Config, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Server.ApiKey != "" && r.Header.Get("X-Api-Key") != cfg.Server.ApiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type productsResponse struct {
	Data       []models.Product `json:"data"`
	Pagination pagination       `json:"pagination"`
}

type pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	Total       int `json:"total"`
}

func productsHandler(repo *database.DBRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queryParams := r.URL.Query()
		page, _ := strconv.Atoi(queryParams.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(queryParams.Get("limit"))
		if limit < 1 {
			limit = 20
		}
		offset := (page - 1) * limit
		seller := queryParams.Get("seller")

		total, err := repo.CountProducts(seller)
		if err != nil {
			http.Error(w, "Failed to count products", http.StatusInternalServerError)
			return
		}
		totalPages := int(math.Ceil(float64(total) / float64(limit)))

		products, err := repo.GetProducts(seller, limit, offset)
		if err != nil {
			http.Error(w, "Failed to get products", http.StatusInternalServerError)
			return
		}

		writeJSON(w, productsResponse{
			Data: products,
			Pagination: pagination{
				TotalPages:  totalPages,
				CurrentPage: page,
				Total:       total,
			},
		})
	}
}

func sellersHandler(repo *database.DBRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := repo.GetSellerStatuses()
		if err != nil {
			http.Error(w, "Failed to get seller statuses", http.StatusInternalServerError)
			return
		}
		writeJSON(w, statuses)
	}
}

type statusResponse struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Currency      string           `json:"currency"`
	System        utils.SystemInfo `json:"system"`
}

func statusHandler(repo *database.DBRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusResponse{
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Currency:      repo.GetGlobalCurrency(),
			System:        utils.CollectSystemInfo(),
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
