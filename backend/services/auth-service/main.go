package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/assetledger/asset-transfer/backend/pkg/common"
	"github.com/assetledger/asset-transfer/backend/pkg/common/api"
	"github.com/assetledger/asset-transfer/backend/pkg/common/db"
	"github.com/assetledger/asset-transfer/backend/pkg/common/migrations"
	"github.com/assetledger/asset-transfer/backend/services/auth-service/models"
)

const tokenTTL = 24 * time.Hour

type Service struct {
	db     *sql.DB
	secret []byte
}

func (s *Service) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}
	if req.Username == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Username and password are required", "")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password", "")
		return
	}

	userID := "user-" + req.Username

	_, err = s.db.Exec(`
		INSERT INTO auth_db.users (
			id, username, password_hash, full_name, email, role, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, req.Username, string(hashedPassword), req.FullName, req.Email, "USER", "ACTIVE")
	if err != nil {
		log.Printf("Failed to register user: %v", err)
		if isUniqueViolation(err) {
			api.WriteError(w, http.StatusConflict, "user_exists", "Username or email already exists", "")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to register user", "")
		return
	}

	api.WriteSuccess(w, http.StatusCreated, map[string]string{"user_id": userID, "status": "created"})
}

func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", "")
		return
	}

	var user models.User
	err := s.db.QueryRow(`
		SELECT id, password_hash, role, status
		FROM auth_db.users WHERE username = $1`, req.Username).
		Scan(&user.ID, &user.PasswordHash, &user.Role, &user.Status)
	if err == sql.ErrNoRows {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", "")
		return
	} else if err != nil {
		log.Printf("DB Error: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Database error", "")
		return
	}

	if user.Status != "ACTIVE" {
		api.WriteError(w, http.StatusForbidden, "account_inactive", "Account is not active", "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		api.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", "")
		return
	}

	go func() {
		s.db.Exec("UPDATE auth_db.users SET last_login_at = $1 WHERE id = $2", time.Now(), user.ID)
	}()

	token, expiresAt, err := s.issueToken(&models.Claims{
		UserID:   user.ID,
		Username: req.Username,
		Role:     user.Role,
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to generate token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Service) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.parseToken(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", "")
		return
	}

	token, expiresAt, err := s.issueToken(&models.Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "internal_error", "Failed to refresh token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Service) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.parseToken(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token", "")
		return
	}

	api.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.UserID,
		"username": claims.Username,
		"role":     claims.Role,
	})
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, the only Exec failure that means the username is taken.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Service) issueToken(claims *models.Claims) (string, int64, error) {
	expirationTime := time.Now().Add(tokenTTL)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		Issuer:    "asset-auth-service",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expirationTime.Unix(), nil
}

func (s *Service) parseToken(r *http.Request) (*models.Claims, bool) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if tokenString == "" {
		return nil, false
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

func main() {
	cfg := common.LoadConfig()

	database, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer database.Close()

	if err := migrations.RunMigrations(database, "migrations/auth"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	svc := &Service{db: database, secret: []byte(cfg.JWTSecret)}

	r := mux.NewRouter()

	r.HandleFunc("/auth/register", svc.RegisterHandler).Methods("POST")
	r.HandleFunc("/auth/login", svc.LoginHandler).Methods("POST")
	r.HandleFunc("/auth/refresh", svc.RefreshHandler).Methods("POST")
	r.HandleFunc("/auth/verify", svc.VerifyHandler).Methods("GET")

	log.Printf("Auth Service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
