package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const companiesPath = "/api/companies"

var (
	ErrMissingToken  = errors.New("authorization header required")
	ErrMalformedAuth = errors.New("authorization header must be a Bearer token")
	ErrInvalidToken  = errors.New("invalid token")
)

// HTTPMiddleware rejects protected requests that carry no valid token with
// 401 and a JSON message. Authenticated requests reach next with their
// claims in the context.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := authenticate(r, jwtSecret)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, claims)))
	})
}

// authenticate reads the Bearer token of r and validates it against secret.
func authenticate(r *http.Request, secret string) (jwt.MapClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMalformedAuth
	}

	claims, err := validateToken(strings.TrimSpace(token), secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := err.Error()
	// Parser detail stays out of the response.
	if errors.Is(err, ErrInvalidToken) {
		msg = ErrInvalidToken.Error()
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="companies"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}

// isProtectedRequest reports whether r mutates companies or asks for the
// admin listing.
func isProtectedRequest(r *http.Request) bool {
	if r.URL.Path != companiesPath && !strings.HasPrefix(r.URL.Path, companiesPath+"/") {
		return false
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	case http.MethodGet:
		admin, _ := strconv.ParseBool(r.URL.Query().Get("isAdmin"))
		return admin
	default:
		return false
	}
}
