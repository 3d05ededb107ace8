package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryowuandjanet/go-user-auth/config"
	"github.com/ryowuandjanet/go-user-auth/internal/container"
)

type linkMailer struct {
	mu   sync.Mutex
	last string
}

func (m *linkMailer) SendPasswordReset(_ context.Context, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = link
	return nil
}

func (m *linkMailer) token(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := url.Parse(m.last)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
	mailer *linkMailer
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		AppName:            "test",
		SecretKey:          "s3cret",
		JWTAlgorithm:       "HS256",
		AccessTTL:          30 * time.Minute,
		ResetTokenTTL:      24 * time.Hour,
		BcryptCost:         4,
		StoreDriver:        config.StoreMemory,
		MailDriver:         config.MailLog,
		ResetPasswordURL:   "http://app.test/reset-password",
		CORSAllowedOrigins: "http://front.test",
		MetricsEnabled:     true,
		HTTPLogEnabled:     true,
	}
	c, err := container.New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	m := &linkMailer{}
	c.Auth.Mailer = m
	return &server{t: t, engine: NewEngine(c), mailer: m}
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *server) postJSON(path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return s.do(req)
}

func (s *server) get(path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return s.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// accessToken reads the bare {access_token, token_type} body shared by
// every token endpoint.
func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	assert.Len(t, body, 2)
	require.Equal(t, "bearer", body["token_type"])
	tok, _ := body["access_token"].(string)
	require.NotEmpty(t, tok)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	return tok
}

func TestRegisterLoginMe(t *testing.T) {
	s := newServer(t)

	w := s.postJSON("/api/auth/register", `{"email":"a@b.com","name":"A","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	accessToken(t, w)

	w = s.postJSON("/api/auth/login", `{"email":"a@b.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	tok := accessToken(t, w)

	w = s.get("/api/auth/me", "Authorization", "Bearer "+tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	assert.True(t, env.Success)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))
	assert.Contains(t, string(env.Data), `"email":"a@b.com"`)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "reset")
}

func TestRegister_Duplicate(t *testing.T) {
	s := newServer(t)
	body := `{"email":"a@b.com","name":"A","password":"password123"}`
	require.Equal(t, http.StatusOK, s.postJSON("/api/auth/register", body).Code)

	w := s.postJSON("/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode(t, w).Message)
}

func TestRegister_Validation(t *testing.T) {
	s := newServer(t)

	w := s.postJSON("/api/auth/register", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Error), `"email"`)
	assert.Contains(t, string(env.Error), `"name"`)
	assert.Contains(t, string(env.Error), `"password"`)

	long, _ := json.Marshal(map[string]string{"email": "a@b.com", "name": "A", "password": strings.Repeat("x", 73)})
	w = s.postJSON("/api/auth/register", string(long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(decode(t, w).Error), "72 bytes")

	w = s.postJSON("/api/auth/register", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	s := newServer(t)

	w := s.postJSON("/api/auth/register", `{"email":"a@b.com","name":"A","password":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accessToken(t, w)

	w = s.postJSON("/api/auth/login", `{"email":"a@b.com","password":"abc"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accessToken(t, w)
}

func TestTokenEndpoint_RawOAuth2Shape(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.postJSON("/api/auth/register", `{"email":"a@b.com","name":"A","password":"password123"}`).Code)

	form := url.Values{"username": {"a@b.com"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	accessToken(t, w)

	form.Set("password", "wrong-password")
	req = httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestLogin_Failures(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.postJSON("/api/auth/register", `{"email":"a@b.com","name":"A","password":"password123"}`).Code)

	wrong := s.postJSON("/api/auth/login", `{"email":"a@b.com","password":"nope-nope"}`)
	unknown := s.postJSON("/api/auth/login", `{"email":"ghost@b.com","password":"password123"}`)

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	assert.Equal(t, decode(t, wrong).Message, decode(t, unknown).Message)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.postJSON("/api/auth/register", `{"email":"a@b.com","name":"A","password":"old-password"}`).Code)

	w := s.postJSON("/api/auth/forgot-password", `{"email":"ghost@b.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.postJSON("/api/auth/forgot-password", `{"email":"a@b.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Password reset email sent", decode(t, w).Message)
	token := s.mailer.token(t)
	require.NotEmpty(t, token)

	body, _ := json.Marshal(map[string]string{"token": token, "new_password": "new-password"})
	w = s.postJSON("/api/auth/reset-password", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password updated successfully", decode(t, w).Message)

	w = s.postJSON("/api/auth/reset-password", string(body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or expired reset token", decode(t, w).Message)

	assert.Equal(t, http.StatusOK, s.postJSON("/api/auth/login", `{"email":"a@b.com","password":"new-password"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, s.postJSON("/api/auth/login", `{"email":"a@b.com","password":"old-password"}`).Code)
}

func TestLogout(t *testing.T) {
	s := newServer(t)

	w := s.postJSON("/api/auth/logout", ``)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Shape only: the token is never verified.
	w = s.postJSON("/api/auth/logout", ``, "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Successfully logged out", decode(t, w).Message)
}

func TestMe_RejectsBadTokens(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.get("/api/auth/me").Code)
	assert.Equal(t, http.StatusUnauthorized, s.get("/api/auth/me", "Authorization", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, s.get("/api/auth/me", "Authorization", "Basic dXNlcjpwYXNz").Code)
}

func TestUsersCRUD(t *testing.T) {
	s := newServer(t)

	w := s.postJSON("/api/users", `{"email":"c@d.com","name":"C","is_active":false}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID       string `json:"id"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	require.NotEmpty(t, created.ID)
	assert.False(t, created.IsActive)

	w = s.postJSON("/api/users", `{"email":"c@d.com","name":"C2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode(t, w).Message)

	w = s.postJSON("/api/users", `{"email":"e@f.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(decode(t, w).Error), `"name"`)

	w = s.get("/api/users/" + created.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.get("/api/users/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User missing not found", decode(t, w).Message)

	w = s.get("/api/users?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusBadRequest, s.get("/api/users?limit=101").Code)
	assert.Equal(t, http.StatusBadRequest, s.get("/api/users?limit=abc").Code)
}

func TestSystemRoutes(t *testing.T) {
	s := newServer(t)

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to the user auth API", decode(t, w).Message)

	assert.Equal(t, http.StatusOK, s.get("/healthz").Code)

	w = s.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCORS(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://front.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := s.do(req)

	assert.Equal(t, "http://front.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsConfig_Wildcard(t *testing.T) {
	cfg := corsConfig([]string{"*"})
	assert.True(t, cfg.AllowAllOrigins)
	assert.False(t, cfg.AllowCredentials)
}
