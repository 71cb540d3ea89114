// This is a **mock authentication service**, designed to provide JWT tokens
// for the company service's protected routes, simulating user authentication.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gartstein/companydir/internal/company/auth"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
	defaultUser   = "admin"
	tokenTTL      = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenHandler generates a JWT and returns it in JSON response
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			userID = defaultUser
		}

		token, err := auth.GenerateToken(userID, secret, tokenTTL)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		resp := TokenResponse{Token: token, ExpiresAt: time.Now().Add(tokenTTL)}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Fatal("failed to load .env", zap.Error(err))
	}
	port := getEnv("AUTH_PORT", defaultPort)
	secret := getEnv("JWT_SECRET", defaultSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(secret, logger))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Authentication service running", zap.String("port", port))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Authentication service stopped", zap.Error(err))
	}
}
