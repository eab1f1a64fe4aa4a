package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"server/pkg/zip"
)

// StorageFetcher retrieves full blobs from the storage network.
type StorageFetcher interface {
	Fetch(ctx context.Context, rootHash string) ([]byte, error)
}

// MemeExport bundles a meme's artifact and a descriptor into a zip archive
// for download.
func (a *App) MemeExport(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r)
	if !ok {
		return
	}
	meme, err := a.Memes.Get(r.Context(), id)
	if err != nil {
		a.domainError(w, err)
		return
	}
	fetcher, ok := a.Storage.(StorageFetcher)
	if !ok {
		a.error(w, http.StatusNotImplemented, "not_supported", "artifact export is not configured")
		return
	}
	artifact, err := fetcher.Fetch(r.Context(), meme.RootHash)
	if err != nil {
		a.domainError(w, err)
		return
	}
	descriptor, _ := json.MarshalIndent(memeView(*meme), "", "  ")
	archive := zip.ArchiveAssets([]zip.Asset{
		{Filename: fmt.Sprintf("meme-%d", id), Data: artifact},
		{Filename: "meme.json", MIME: "application/json", Data: descriptor},
	})
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=meme-%d.zip", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
