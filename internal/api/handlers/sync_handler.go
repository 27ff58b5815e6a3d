package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nileshsolidarity/Processes/internal/core/ingest"
	"github.com/nileshsolidarity/Processes/internal/models"
)

// Syncer runs and reports drive syncs.
type Syncer interface {
	Run(ctx context.Context) (models.SyncResult, error)
	Status() models.SyncStatus
}

type SyncHandler struct {
	pipeline Syncer
}

func NewSyncHandler(pipeline Syncer) *SyncHandler {
	return &SyncHandler{pipeline: pipeline}
}

// Trigger runs a full sync synchronously and reports the outcome. A run
// already in flight yields a conflict.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Run(r.Context())
	if err != nil {
		if errors.Is(err, ingest.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "Sync already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"filesFound":     result.FilesFound,
		"filesProcessed": result.FilesProcessed,
	})
}

// Status reports the current or most recent sync run.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}
