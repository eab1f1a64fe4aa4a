package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

type fetchingVerifier struct {
	fakeVerifier
	data map[string][]byte
}

func (f *fetchingVerifier) Fetch(ctx context.Context, rootHash string) ([]byte, error) {
	data, ok := f.data[rootHash]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return data, nil
}

func TestMemeExportBundlesArchive(t *testing.T) {
	env := newTestEnv()
	env.app.Storage = &fetchingVerifier{
		fakeVerifier: fakeVerifier{exists: true},
		data:         map[string][]byte{"0xr1": []byte("artifact bytes")},
	}
	env.router.Get("/v1/memes/{id}/export", env.app.MemeExport)
	_ = env.repo.Create(context.Background(), &domain.Meme{
		ID: 42, TxRef: "0xreg", RootHash: "0xr1",
		Caption: "Cats rule", Status: domain.MemeStatusVerified,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/memes/42/export", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content type = %q, want application/zip", got)
	}

	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if len(reader.File) != 2 {
		t.Fatalf("archive entries = %d, want artifact and descriptor", len(reader.File))
	}
	if !names["meme.json"] {
		t.Fatalf("archive entries = %v, want a meme.json descriptor", names)
	}
}

func TestMemeExportMissingArtifact(t *testing.T) {
	env := newTestEnv()
	env.app.Storage = &fetchingVerifier{data: map[string][]byte{}}
	env.router.Get("/v1/memes/{id}/export", env.app.MemeExport)
	_ = env.repo.Create(context.Background(), &domain.Meme{ID: 42, TxRef: "0xreg", RootHash: "0xgone", Status: domain.MemeStatusVerified})

	req := httptest.NewRequest(http.MethodGet, "/v1/memes/42/export", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMemeExportWithoutFetcher(t *testing.T) {
	env := newTestEnv()
	env.router.Get("/v1/memes/{id}/export", env.app.MemeExport)
	_ = env.repo.Create(context.Background(), &domain.Meme{ID: 42, TxRef: "0xreg", RootHash: "0xr1", Status: domain.MemeStatusVerified})

	req := httptest.NewRequest(http.MethodGet, "/v1/memes/42/export", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501 when export is not configured", rec.Code)
	}
}
