package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"deadline-tracker/internal/domain"
	"deadline-tracker/internal/service"
)

type mockUserRepo struct {
	usersByID       map[string]domain.User
	usersByUsername map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:       make(map[string]domain.User),
		usersByUsername: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	if user.Username != "" {
		m.usersByUsername[user.Username] = user.ID
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	id, ok := m.usersByUsername[username]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

type mockDeadlineRepo struct {
	byID map[string]domain.Deadline
}

func newMockDeadlineRepo() *mockDeadlineRepo {
	return &mockDeadlineRepo{byID: make(map[string]domain.Deadline)}
}

func (m *mockDeadlineRepo) Create(_ context.Context, d domain.Deadline) error {
	m.byID[d.ID] = d
	return nil
}

func (m *mockDeadlineRepo) GetByID(_ context.Context, id string) (domain.Deadline, error) {
	d, ok := m.byID[id]
	if !ok {
		return domain.Deadline{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDeadlineRepo) ListByUser(_ context.Context, username string) ([]domain.Deadline, error) {
	var list []domain.Deadline
	for _, d := range m.byID {
		if d.Username == username {
			list = append(list, d)
		}
	}
	return list, nil
}

func (m *mockDeadlineRepo) ListIncomplete(_ context.Context) ([]domain.Deadline, error) {
	var list []domain.Deadline
	for _, d := range m.byID {
		if !d.Completed {
			list = append(list, d)
		}
	}
	return list, nil
}

func (m *mockDeadlineRepo) MarkComplete(_ context.Context, id string) error {
	if d, ok := m.byID[id]; ok {
		d.Completed = true
		m.byID[id] = d
	}
	return nil
}

func (m *mockDeadlineRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type testEnv struct {
	router    *gin.Engine
	users     *mockUserRepo
	deadlines *mockDeadlineRepo
	jwtSvc    *service.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	users := newMockUserRepo()
	deadlines := newMockDeadlineRepo()
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, service.NewMemoryRefreshTokenStore())
	userSvc := service.NewUserService(logger, users)
	deadlineSvc := service.NewDeadlineService(logger, deadlines, users)
	userH := NewUserHandler(logger, userSvc, jwtSvc)
	deadlineH := NewDeadlineHandler(logger, deadlineSvc)

	return &testEnv{
		router:    NewRouter(logger, userH, deadlineH, jwtSvc, nil),
		users:     users,
		deadlines: deadlines,
		jwtSvc:    jwtSvc,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"phone":    "+15550001",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User domain.User `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.User.Username != "alice" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
}

func TestRegisterEndpoint_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)

	payload := gin.H{"username": "alice", "email": "a@example.com", "password": "correct-horse"}
	if rec := env.do(t, http.MethodPost, "/users", "", payload); rec.Code != http.StatusCreated {
		t.Fatalf("first register: %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/users", "", payload); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/users", "", gin.H{
		"username": "alice", "email": "a@example.com", "password": "correct-horse",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", resp.Tokens)
	}

	if rec := env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "wrong",
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}
}

func TestRefreshAndLogoutEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/users", "", gin.H{
		"username": "alice", "email": "a@example.com", "password": "correct-horse",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d", rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "correct-horse",
	})
	var login struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = env.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": login.Tokens.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}
	var refreshed struct {
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &refreshed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// El refresh rota el token: el viejo queda revocado.
	if rec := env.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": login.Tokens.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on rotated token, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/auth/logout", "", gin.H{"refresh_token": refreshed.Tokens.RefreshToken}); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": refreshed.Tokens.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
