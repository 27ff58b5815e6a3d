package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nileshsolidarity/Processes/internal/models"
)

// BranchStore is the lookup surface the auth endpoints need.
type BranchStore interface {
	GetBranchByCode(ctx context.Context, code string) (*models.Branch, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)
}

type AuthHandler struct {
	store  BranchStore
	secret string
}

func NewAuthHandler(store BranchStore, secret string) *AuthHandler {
	return &AuthHandler{store: store, secret: secret}
}

type loginRequest struct {
	Code string `json:"code"`
}

// Login exchanges a branch code for a signed token. Codes are matched
// case-insensitively by uppercasing the input.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Branch code is required")
		return
	}

	branch, err := h.store.GetBranchByCode(r.Context(), strings.ToUpper(req.Code))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if branch == nil {
		writeError(w, http.StatusUnauthorized, "Invalid branch code")
		return
	}

	token, err := h.generateToken(branch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"branch": branch,
	})
}

// Branches lists the selectable branches for the login screen.
func (h *AuthHandler) Branches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListBranches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load branches")
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (h *AuthHandler) generateToken(branch *models.Branch) (string, error) {
	claims := jwt.MapClaims{
		"branchId": branch.ID,
		"name":     branch.Name,
		"code":     branch.Code,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(h.secret))
}
