package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/bearer-auth/app"
	"github.com/upb/bearer-auth/config"
	"github.com/upb/bearer-auth/models"
	"github.com/upb/bearer-auth/repositories"
	"go.uber.org/zap/zaptest"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memoryUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *memoryUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repositories.ErrDuplicateUsername
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	m.users[user.Username] = user
	return nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

type inlineTx struct{}

func (inlineTx) Begin(context.Context) (repositories.Transaction, error) { return nil, nil }

func (inlineTx) InTransaction(ctx context.Context, fn func(context.Context, repositories.Transaction) error) error {
	return fn(ctx, nil)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		JWT:         config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", Expiration: time.Hour},
		Security: config.SecurityConfig{
			BcryptCost:         4,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
	}
	repos := &repositories.Repositories{Users: &memoryUsers{users: make(map[string]*models.User)}}

	deps, err := app.NewDependenciesFromRepositories(cfg, zaptest.NewLogger(t), repos, inlineTx{})
	require.NoError(t, err)

	ts := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body, bearer string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func tokenFrom(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	tok, ok := data["token"].(string)
	require.True(t, ok)
	return tok
}

func TestRegisterLoginAndProbe(t *testing.T) {
	ts := newServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusCreated, status)
	registered := tokenFrom(t, body)
	assert.Equal(t, "Bearer", body["data"].(map[string]interface{})["type"])

	status, body = do(t, http.MethodPost, ts.URL+"/auth/login", `{"username":"alice","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusOK, status)
	loggedIn := tokenFrom(t, body)

	for _, tok := range []string{registered, loggedIn} {
		status, body = do(t, http.MethodGet, ts.URL+"/v1/user/test", "", tok)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Authentication working correctly!", body["message"])
		assert.Equal(t, "alice", body["username"])
	}

	status, body = do(t, http.MethodGet, ts.URL+"/api/v1/users/me", "", loggedIn)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["data"].(map[string]interface{})["username"])
}

func TestProbeNeverRejects(t *testing.T) {
	ts := newServer(t)

	for _, bearer := range []string{"", "garbage", "eyJhbGciOiJIUzI1NiJ9.e30.c2ln"} {
		status, body := do(t, http.MethodGet, ts.URL+"/v1/user/test", "", bearer)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "User not authenticated", body["message"])
		assert.Nil(t, body["username"])
	}
}

func TestRegisterConflicts(t *testing.T) {
	ts := newServer(t)

	status, _ := do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"alice","email":"other@example.com","password":"s3cret!"}`, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username already in use", body["message"])

	status, body = do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"bob","email":"alice@example.com","password":"s3cret!"}`, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already in use", body["message"])
}

func TestRegisterRejectsInvalidSecrets(t *testing.T) {
	ts := newServer(t)

	testCases := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "password over bcrypt byte limit",
			body:  `{"username":"alice","email":"alice@example.com","password":"` + strings.Repeat("p", 80) + `"}`,
			field: "password",
		},
		{
			name:  "blank username",
			body:  `{"username":"     ","email":"alice@example.com","password":"s3cret!"}`,
			field: "username",
		},
		{
			name:  "blank password",
			body:  `{"username":"alice","email":"alice@example.com","password":"        "}`,
			field: "password",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, ts.URL+"/auth/register", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "bad_request", body["error"])
			details, ok := body["details"].(map[string]interface{})
			require.True(t, ok)
			assert.Contains(t, details, tc.field)
		})
	}

	status, _ := do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"`+strings.Repeat("p", 72)+`"}`, "")
	assert.Equal(t, http.StatusCreated, status, "72 bytes is accepted")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newServer(t)
	status, _ := do(t, http.MethodPost, ts.URL+"/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"s3cret!"}`, "")
	require.Equal(t, http.StatusCreated, status)

	wrongSecret, wrongBody := do(t, http.MethodPost, ts.URL+"/auth/login", `{"username":"alice","password":"nope!!"}`, "")
	unknownUser, unknownBody := do(t, http.MethodPost, ts.URL+"/auth/login", `{"username":"mallory","password":"nope!!"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongSecret)
	assert.Equal(t, wrongSecret, unknownUser)
	assert.Equal(t, wrongBody, unknownBody)
}

func TestProtectedAndUnknownRoutes(t *testing.T) {
	ts := newServer(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"readiness without database", http.MethodGet, "/readyz", http.StatusOK},
		{"status", http.MethodGet, "/api/v1/status", http.StatusOK},
		{"current user unauthenticated", http.MethodGet, "/api/v1/users/me", http.StatusUnauthorized},
		{"not found", http.MethodGet, "/api/v1/nonexistent", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/auth/login", http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := do(t, tc.method, ts.URL+tc.path, "", "")
			assert.Equal(t, tc.expectedStatus, status, "endpoint: %s %s", tc.method, tc.path)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	ts := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
