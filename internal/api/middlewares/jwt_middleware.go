package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const branchKey contextKey = "branch"

// BranchClaims is the authenticated branch identity carried on the request
// context after JWT validation.
type BranchClaims struct {
	BranchID int64
	Name     string
	Code     string
}

// BranchFromContext returns the authenticated branch, if any.
func BranchFromContext(ctx context.Context) (BranchClaims, bool) {
	b, ok := ctx.Value(branchKey).(BranchClaims)
	return b, ok
}

// JWTMiddleware validates the Authorization header and attaches the branch
// claims to the request context.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w)
				return
			}

			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w)
				return
			}

			// JSON numbers decode as float64.
			branchID, ok := claims["branchId"].(float64)
			if !ok {
				unauthorized(w)
				return
			}
			name, _ := claims["name"].(string)
			code, _ := claims["code"].(string)

			ctx := context.WithValue(r.Context(), branchKey, BranchClaims{
				BranchID: int64(branchID),
				Name:     name,
				Code:     code,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}
