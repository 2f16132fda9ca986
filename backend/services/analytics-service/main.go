package main

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/assetledger/asset-transfer/backend/pkg/common"
	"github.com/assetledger/asset-transfer/backend/pkg/common/api"
	"github.com/assetledger/asset-transfer/backend/pkg/common/db"
)

// Reads the gateway's off-chain audit table and serves aggregate views of
// ledger activity. The chain itself stays the source of truth.

type Service struct {
	db *sql.DB
}

type OperationCount struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Count     int64  `json:"count"`
}

func (s *Service) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT operation, status, COUNT(*)
		FROM gateway_db.invocations
		GROUP BY operation, status
		ORDER BY operation, status`)
	if err != nil {
		log.Printf("Failed to query invocations: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch summary", "")
		return
	}
	defer rows.Close()

	summary := []OperationCount{}
	for rows.Next() {
		var c OperationCount
		if err := rows.Scan(&c.Operation, &c.Status, &c.Count); err != nil {
			log.Printf("Failed to scan invocation row: %v", err)
			continue
		}
		summary = append(summary, c)
	}

	api.WriteSuccess(w, http.StatusOK, summary)
}

func (s *Service) RecentHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(`
		SELECT id, operation, asset_id, status, created_at
		FROM gateway_db.invocations
		ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		log.Printf("Failed to query invocations: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch invocations", "")
		return
	}
	defer rows.Close()

	type invocation struct {
		ID        string    `json:"id"`
		Operation string    `json:"operation"`
		AssetID   string    `json:"asset_id"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	recent := []invocation{}
	for rows.Next() {
		var inv invocation
		if err := rows.Scan(&inv.ID, &inv.Operation, &inv.AssetID, &inv.Status, &inv.CreatedAt); err == nil {
			recent = append(recent, inv)
		}
	}

	api.WriteSuccess(w, http.StatusOK, recent)
}

func main() {
	cfg := common.LoadConfig()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	svc := &Service{db: database}

	r := mux.NewRouter()
	r.HandleFunc("/analytics/summary", svc.SummaryHandler).Methods("GET")
	r.HandleFunc("/analytics/recent", svc.RecentHandler).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Analytics OK"))
	}).Methods("GET")

	log.Printf("Analytics Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
