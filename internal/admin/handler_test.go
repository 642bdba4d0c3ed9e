package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"tjanster-backend/internal/auth"
	"tjanster-backend/internal/validation"
)

type fakeRepo struct {
	users map[string]User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]User)}
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (User, error) {
	u, ok := f.users[email]
	if !ok {
		return User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (f *fakeRepo) Create(_ context.Context, u User) error {
	f.users[u.Email] = u
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id, hash string, now time.Time) error {
	for email, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			u.UpdatedAt = now
			f.users[email] = u
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func newTestManager() *auth.Manager {
	return &auth.Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "tjanster-backend",
	}
}

func newTestHandler(repo Repository, manager *auth.Manager) *Handler {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHandler(repo, manager, log, validation.New(), false, loc)
}

func TestLoginWithoutManagerReturnsUnavailable(t *testing.T) {
	h := newTestHandler(newFakeRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"admin@example.com","password":"hemligt123"}`))
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRefreshWithoutManagerReturnsUnavailable(t *testing.T) {
	h := newTestHandler(newFakeRepo(), nil)

	// A well-formed refresh cookie must not reach token parsing when no
	// manager is configured.
	manager := newTestManager()
	token, err := manager.NewRefreshToken(RoleAdmin, "admin@example.com")
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "tjanster_refresh", Value: token})
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	repo := newFakeRepo()
	hash, err := auth.HashPassword("hemligt123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	repo.users["admin@example.com"] = User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         RoleAdmin,
	}
	h := newTestHandler(repo, newTestManager())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"admin@example.com","password":"hemligt123"}`))
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var access, refresh bool
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case "tjanster_access":
			access = c.Value != ""
		case "tjanster_refresh":
			refresh = c.Value != ""
		}
	}
	if !access || !refresh {
		t.Fatalf("expected both session cookies, got access=%v refresh=%v", access, refresh)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeRepo()
	hash, err := auth.HashPassword("hemligt123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	repo.users["admin@example.com"] = User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         RoleAdmin,
	}
	h := newTestHandler(repo, newTestManager())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"email":"admin@example.com","password":"fel-losenord"}`))
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	manager := newTestManager()
	h := newTestHandler(newFakeRepo(), manager)

	token, err := manager.NewRefreshToken(RoleAdmin, "admin@example.com")
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "tjanster_refresh", Value: token})
	rr := httptest.NewRecorder()

	h.Refresh(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Fatal("expected fresh session cookies")
	}
}
