package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func protectedEcho(t *testing.T) (http.Handler, *BranchClaims) {
	t.Helper()
	var seen BranchClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		branch, ok := BranchFromContext(r.Context())
		if !ok {
			t.Error("branch missing from context")
		}
		seen = branch
	})
	return JWTMiddleware(secret)(next), &seen
}

func TestJWTMiddlewareValidToken(t *testing.T) {
	h, seen := protectedEcho(t)

	token := signToken(t, jwt.MapClaims{
		"branchId": 4,
		"name":     "Pune",
		"code":     "PUN001",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen.BranchID != 4 || seen.Code != "PUN001" || seen.Name != "Pune" {
		t.Errorf("claims = %+v", *seen)
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	h, _ := protectedEcho(t)

	expired := signToken(t, jwt.MapClaims{
		"branchId": 1,
		"exp":      time.Now().Add(-time.Hour).Unix(),
	}, secret)
	wrongKey := signToken(t, jwt.MapClaims{
		"branchId": 1,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}, "other-secret")
	noBranch := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, secret)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"missing branch claim", "Bearer " + noBranch},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", tc.name, rec.Code)
		}
	}
}
