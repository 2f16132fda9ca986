package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"

	"github.com/assetledger/asset-transfer/backend/pkg/common"
	"github.com/assetledger/asset-transfer/backend/pkg/common/db"
	"github.com/assetledger/asset-transfer/backend/pkg/common/migrations"
	"github.com/assetledger/asset-transfer/backend/pkg/fabricclient"
	"github.com/assetledger/asset-transfer/backend/services/asset-gateway/models"
)

// ledgerContract is the slice of fabricclient.Client the handlers need.
type ledgerContract interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

// auditStore is the slice of sql.DB the invocation recorder needs.
type auditStore interface {
	Exec(query string, args ...any) (sql.Result, error)
}

var errLedgerUnavailable = errors.New("ledger network unavailable")

type Service struct {
	fabric ledgerContract
	db     auditStore
}

func (s *Service) submit(name string, args ...string) ([]byte, error) {
	if s.fabric == nil {
		return nil, errLedgerUnavailable
	}
	return s.fabric.SubmitTransaction(name, args...)
}

func (s *Service) evaluate(name string, args ...string) ([]byte, error) {
	if s.fabric == nil {
		return nil, errLedgerUnavailable
	}
	return s.fabric.EvaluateTransaction(name, args...)
}

// recordInvocation keeps an off-chain audit row per submitted transaction.
// Best effort: the chain is the source of truth.
func (s *Service) recordInvocation(operation, assetID, status string) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(`
		INSERT INTO gateway_db.invocations (id, operation, asset_id, status)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), operation, assetID, status)
	if err != nil {
		log.Printf("Failed to record invocation: %v", err)
	}
}

func (s *Service) CreateAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	result, err := s.submit("CreateAsset", req.ID, req.Owner, strconv.Itoa(req.Value), req.Description)
	if err != nil {
		log.Printf("CreateAsset %s failed: %v", req.ID, err)
		s.recordInvocation("CreateAsset", req.ID, "Failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordInvocation("CreateAsset", req.ID, "Confirmed")

	writeResult(w, http.StatusCreated, result)
}

func (s *Service) QueryAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.evaluate("QueryAsset", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeResult(w, http.StatusOK, result)
}

func (s *Service) UpdateAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	result, err := s.submit("UpdateAsset", req.ID, req.Owner, strconv.Itoa(req.Value), req.Description)
	if err != nil {
		log.Printf("UpdateAsset %s failed: %v", req.ID, err)
		s.recordInvocation("UpdateAsset", req.ID, "Failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordInvocation("UpdateAsset", req.ID, "Confirmed")

	writeResult(w, http.StatusOK, result)
}

func (s *Service) DeleteAssetHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.submit("DeleteAsset", id); err != nil {
		log.Printf("DeleteAsset %s failed: %v", id, err)
		s.recordInvocation("DeleteAsset", id, "Failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordInvocation("DeleteAsset", id, "Confirmed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "asset deleted"})
}

func (s *Service) TransferAssetHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	result, err := s.submit("TransferAsset", req.ID, req.NewOwner)
	if err != nil {
		log.Printf("TransferAsset %s failed: %v", req.ID, err)
		s.recordInvocation("TransferAsset", req.ID, "Failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordInvocation("TransferAsset", req.ID, "Confirmed")

	writeResult(w, http.StatusOK, result)
}

func (s *Service) AssetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.evaluate("GetAssetHistory", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeResult(w, http.StatusOK, result)
}

func (s *Service) ListAssetsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.evaluate("GetAllAssets")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeResult(w, http.StatusOK, result)
}

// writeResult passes the chaincode's serialized return value through as the
// response body.
func writeResult(w http.ResponseWriter, statusCode int, result []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(result)
}

// writeError emits the {"error": message} body the gateway has always
// answered with on any failure, regardless of kind.
func writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func newRouter(svc *Service, cfg *common.Config) *mux.Router {
	r := mux.NewRouter()
	if cfg.AuthRequired {
		r.Use(common.AuthMiddleware([]byte(cfg.JWTSecret)))
	}

	r.HandleFunc("/asset", svc.CreateAssetHandler).Methods("POST")
	r.HandleFunc("/asset/{id}", svc.QueryAssetHandler).Methods("GET")
	r.HandleFunc("/asset", svc.UpdateAssetHandler).Methods("PUT")
	r.HandleFunc("/asset/{id}", svc.DeleteAssetHandler).Methods("DELETE")
	r.HandleFunc("/transfer", svc.TransferAssetHandler).Methods("POST")
	r.HandleFunc("/history/{id}", svc.AssetHistoryHandler).Methods("GET")
	r.HandleFunc("/assets", svc.ListAssetsHandler).Methods("GET")
	return r
}

func watchTransfers(ctx context.Context, client *fabricclient.Client) {
	events, stop, err := client.ChaincodeEvents("TransferAsset")
	if err != nil {
		log.Printf("Warning: transfer event listener unavailable: %v", err)
		return
	}
	defer stop()

	consumeTransfers(ctx, events)
}

// consumeTransfers logs transfer events until the channel closes or ctx is
// cancelled, so the listener deregisters on shutdown.
func consumeTransfers(ctx context.Context, events <-chan *fab.CCEvent) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			log.Printf("TransferAsset event: tx=%s payload=%s", ev.TxID, ev.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	cfg := common.LoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := migrations.RunMigrations(database, "migrations/gateway"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var contract ledgerContract
	fabric, err := fabricclient.NewClient(fabricclient.Config{
		ProfilePath: cfg.FabricConfig,
		Channel:     cfg.Channel,
		Contract:    cfg.Chaincode,
		MSPID:       cfg.MSP,
		CertPath:    cfg.CertPath,
		KeyPath:     cfg.KeyPath,
	})
	if err != nil {
		log.Printf("Warning: Fabric connection failed: %v", err)
	} else {
		defer fabric.Close()
		contract = fabric
		go watchTransfers(ctx, fabric)
	}

	svc := &Service{fabric: contract, db: database}

	r := newRouter(svc, cfg)

	log.Printf("Asset Gateway running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
