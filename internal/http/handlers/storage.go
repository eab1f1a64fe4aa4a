package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type storageVerifyRequest struct {
	RootHash string `json:"root_hash"`
}

// StorageVerify reports whether the storage network can serve a root hash.
// The check is advisory; a failed retrieval is reported as non-existence.
func (a *App) StorageVerify(w http.ResponseWriter, r *http.Request) {
	var req storageVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.RootHash == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "root_hash is required")
		return
	}
	exists := a.Storage.Verify(r.Context(), req.RootHash)
	a.json(w, http.StatusOK, map[string]any{
		"success":     true,
		"exists":      exists,
		"root_hash":   req.RootHash,
		"verified_at": time.Now().UTC().Format(time.RFC3339),
	})
}
