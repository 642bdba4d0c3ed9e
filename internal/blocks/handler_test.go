package blocks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tjanster-backend/internal/validation"
)

type recordingCache struct {
	prefixes []string
}

func (c *recordingCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (c *recordingCache) DeletePrefix(_ context.Context, prefix string) error {
	c.prefixes = append(c.prefixes, prefix)
	return nil
}

func newDeleteRouter(repo *fakeRepo, cacheStore *recordingCache) http.Handler {
	svc := newTestService(repo)
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := NewHandler(svc, validation.New(), log, cacheStore)

	r := chi.NewRouter()
	r.Delete("/blocks/{id}", h.Delete)
	return r
}

func TestDeleteInvalidatesCacheAfterSuccess(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	block, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cacheStore := &recordingCache{}
	router := newDeleteRouter(repo, cacheStore)

	req := httptest.NewRequest(http.MethodDelete, "/blocks/"+block.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(cacheStore.prefixes) != 1 || cacheStore.prefixes[0] != "availability:2025-06-09:" {
		t.Fatalf("expected one per-date invalidation, got %v", cacheStore.prefixes)
	}
}

func TestDeleteFailureKeepsCache(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	block, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.deleteErr = errors.New("connection reset")

	cacheStore := &recordingCache{}
	router := newDeleteRouter(repo, cacheStore)

	req := httptest.NewRequest(http.MethodDelete, "/blocks/"+block.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if len(cacheStore.prefixes) != 0 {
		t.Fatalf("expected no invalidation on failed delete, got %v", cacheStore.prefixes)
	}
}

func TestDeleteMissingBlockReturnsNotFound(t *testing.T) {
	cacheStore := &recordingCache{}
	router := newDeleteRouter(newFakeRepo(), cacheStore)

	req := httptest.NewRequest(http.MethodDelete, "/blocks/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if len(cacheStore.prefixes) != 0 {
		t.Fatalf("expected no invalidation, got %v", cacheStore.prefixes)
	}
}
