package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nileshsolidarity/Processes/internal/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ProcessStore reads synced documents for the browsing endpoints.
type ProcessStore interface {
	ListDocuments(ctx context.Context, f models.DocumentFilter) ([]models.Document, int, error)
	GetDocumentByID(ctx context.Context, id int64) (*models.Document, error)
	ListCategories(ctx context.Context) ([]string, error)
}

type ProcessHandler struct {
	store ProcessStore
}

func NewProcessHandler(store ProcessStore) *ProcessHandler {
	return &ProcessHandler{store: store}
}

// List returns a page of documents ordered by title, with content_text
// stripped from each row.
func (h *ProcessHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := parsePositiveInt(q.Get("page"), 1)
	limit := parsePositiveInt(q.Get("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := models.DocumentFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	docs, total, err := h.store.ListDocuments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load processes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"pagination": map[string]any{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// Get returns one document with its full extracted text.
func (h *ProcessHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Process not found")
		return
	}

	doc, err := h.store.GetDocumentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load process")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "Process not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Categories returns the distinct document categories prefixed with "All".
func (h *ProcessHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}
	writeJSON(w, http.StatusOK, append([]string{"All"}, cats...))
}

func parsePositiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
