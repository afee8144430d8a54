package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"project-planner/metrics"
	"project-planner/middleware"
	"project-planner/repositories"
	"project-planner/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type api struct {
	t       *testing.T
	handler http.Handler
	store   *repositories.Store
}

func newAPI(t *testing.T, opts ...func(*RouterConfig)) *api {
	t.Helper()
	store := repositories.NewMemoryStore()
	cfg := RouterConfig{
		Store:      store,
		JWT:        services.NewJWTService("test-secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &api{t: t, handler: NewRouter(cfg), store: store}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

type session struct {
	ID    string
	Token string
}

func (a *api) register(email string) session {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret1", "fullName": "User " + email,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, env.Error)
	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return session{ID: out.User.ID, Token: out.Token}
}

func (a *api) createProject(s session, members ...string) string {
	a.t.Helper()
	if members == nil {
		members = []string{}
	}
	rec, env := a.do(http.MethodPost, "/api/projects", s.Token, map[string]any{
		"name": "Launch", "description": "Q3 launch", "members": members,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, env.Error)
	return idOf(a.t, env.Data)
}

func (a *api) createTask(s session, projectID, assignee string) string {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/tasks", s.Token, map[string]string{
		"title": "Write docs", "description": "API docs", "status": "todo",
		"startDate": "2024-01-01", "endDate": "2024-01-05",
		"assignedTo": assignee, "projectId": projectID,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, env.Error)
	return idOf(a.t, env.Data)
}

func idOf(t *testing.T, data json.RawMessage) string {
	t.Helper()
	var doc struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotEmpty(t, doc.ID)
	return doc.ID
}

func TestRootAndHealth(t *testing.T) {
	a := newAPI(t)

	rec, _ := a.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task Planner API"}`, rec.Body.String())

	rec, _ = a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	a := newAPI(t, func(c *RouterConfig) {
		c.Store.Ping = func(context.Context) error { return errors.New("down") }
	})
	rec, _ := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	a := newAPI(t)

	rec, env := a.do(http.MethodGet, "/api/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)

	rec, env = a.do(http.MethodPut, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, env.Success)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	s := a.register("ann@x.io")

	rec, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ann@x.io", "password": "secret1", "fullName": "Ann",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", env.Error)

	rec, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.io", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPassword := env.Error
	rec, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@x.io", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, wrongPassword, env.Error)
	assert.Equal(t, "Invalid credentials", env.Error)

	rec, env = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@x.io", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"token"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = a.do(http.MethodGet, "/api/auth/me", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), s.ID)

	rec, _ = a.do(http.MethodPost, "/api/auth/login", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthGate(t *testing.T) {
	a := newAPI(t)

	rec, env := a.do(http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", env.Error)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token format")

	rec, env = a.do(http.MethodGet, "/api/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", env.Error)

	expired := services.NewJWTService("test-secret", -time.Minute)
	token, err := expired.GenerateAuthToken(primitiveID(t, a.register("x@x.io").ID))
	require.NoError(t, err)
	rec, env = a.do(http.MethodGet, "/api/projects", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired", env.Error)

	ghost, err := services.NewJWTService("test-secret", time.Hour).GenerateAuthToken(primitiveID(t, "0123456789abcdef01234567"))
	require.NoError(t, err)
	rec, env = a.do(http.MethodGet, "/api/projects", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Please authenticate", env.Error)
}

// A creates P with member B; B creates T; A edits and deletes T; C is shut out.
func TestSharedProjectScenario(t *testing.T) {
	a := newAPI(t)
	userA, userB, userC := a.register("a@x.io"), a.register("b@x.io"), a.register("c@x.io")

	p := a.createProject(userA, userB.ID)
	taskID := a.createTask(userB, p, userB.ID)

	rec, env := a.do(http.MethodPatch, "/api/tasks/"+taskID, userA.Token, map[string]string{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Contains(t, string(env.Data), `"status":"done"`)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/projects/" + p},
		{http.MethodGet, "/api/projects/" + p + "/tasks"},
		{http.MethodPatch, "/api/projects/" + p},
		{http.MethodDelete, "/api/projects/" + p},
		{http.MethodGet, "/api/tasks/" + taskID},
		{http.MethodPatch, "/api/tasks/" + taskID},
		{http.MethodDelete, "/api/tasks/" + taskID},
		{http.MethodGet, "/api/tasks?projectId=" + p},
	} {
		rec, _ := a.do(probe.method, probe.path, userC.Token, map[string]string{"name": "x"})
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", probe.method, probe.path)
	}

	rec, _ = a.do(http.MethodPost, "/api/tasks", userC.Token, map[string]string{
		"title": "x", "description": "y", "startDate": "2024-01-01", "endDate": "2024-01-02",
		"assignedTo": userC.ID, "projectId": p,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodGet, "/api/projects", userC.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, _ = a.do(http.MethodDelete, "/api/tasks/"+taskID, userA.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(http.MethodGet, "/api/tasks/"+taskID, userA.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnlyCreatorMutatesProject(t *testing.T) {
	a := newAPI(t)
	owner, member := a.register("a@x.io"), a.register("b@x.io")
	p := a.createProject(owner, member.ID)

	rec, _ := a.do(http.MethodGet, "/api/projects/"+p, member.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(http.MethodGet, "/api/projects/"+p+"/tasks", member.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := a.do(http.MethodPatch, "/api/projects/"+p, member.Token, map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to update this project", env.Error)
	rec, _ = a.do(http.MethodDelete, "/api/projects/"+p, member.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodPatch, "/api/projects/"+p, owner.Token, map[string]any{"name": "Renamed", "members": []string{}})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.Contains(t, string(env.Data), `"name":"Renamed"`)

	// dropped from members, B loses access
	rec, _ = a.do(http.MethodGet, "/api/projects/"+p, member.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProjectResourceErrors(t *testing.T) {
	a := newAPI(t)
	s := a.register("a@x.io")

	rec, env := a.do(http.MethodGet, "/api/projects/not-an-id", s.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid project ID", env.Error)

	rec, _ = a.do(http.MethodGet, "/api/projects/0123456789abcdef01234567", s.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = a.do(http.MethodGet, "/api/tasks/not-an-id", s.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid task ID", env.Error)
}

func TestDeleteProjectRemovesTasks(t *testing.T) {
	a := newAPI(t)
	s := a.register("a@x.io")
	p := a.createProject(s)
	a.createTask(s, p, s.ID)
	a.createTask(s, p, s.ID)

	rec, env := a.do(http.MethodDelete, "/api/projects/"+p, s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"deletedTasks":2`)

	rec, env = a.do(http.MethodGet, "/api/tasks", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestTaskUpdateRejectsUnknownFields(t *testing.T) {
	a := newAPI(t)
	s := a.register("a@x.io")
	p := a.createProject(s)
	taskID := a.createTask(s, p, s.ID)

	rec, _ := a.do(http.MethodPatch, "/api/tasks/"+taskID, s.Token, map[string]string{"createdBy": s.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := a.do(http.MethodPatch, "/api/tasks/"+taskID, s.Token, map[string]string{"endDate": "2023-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "Start date")
}

func TestBulkRoutes(t *testing.T) {
	a := newAPI(t)
	owner, outsider := a.register("a@x.io"), a.register("c@x.io")
	p := a.createProject(owner)
	other := a.createProject(outsider)
	t1 := a.createTask(owner, p, owner.ID)
	t2 := a.createTask(owner, p, owner.ID)
	t3 := a.createTask(outsider, other, outsider.ID)

	rec, env := a.do(http.MethodPatch, "/api/tasks/bulk", owner.Token, map[string]any{
		"ids": []string{t1, t2}, "update": map[string]string{"status": "inProgress"},
	})
	require.Equal(t, http.StatusOK, rec.Code, env.Error)
	assert.JSONEq(t, `{"modifiedCount":2}`, string(env.Data))

	rec, _ = a.do(http.MethodPatch, "/api/tasks/bulk", owner.Token, map[string]any{
		"ids": []string{t1}, "update": map[string]string{"projectId": other},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = a.do(http.MethodDelete, "/api/tasks/bulk", owner.Token, map[string]any{"ids": []string{t1, t3}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not authorized to delete some of these tasks", env.Error)
	rec, _ = a.do(http.MethodGet, "/api/tasks/"+t1, owner.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "rejected batch must not delete")

	rec, env = a.do(http.MethodDelete, "/api/tasks/bulk", owner.Token, map[string]any{"ids": []string{t1, t2}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"modifiedCount":2}`, string(env.Data))
}

func TestAuthRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := newAPI(t, func(c *RouterConfig) {
		c.AuthLimiter = middleware.NewRateLimiter(ctx, 0.001, 1)
	})
	body := map[string]string{"email": "a@x.io", "password": "secret1"}

	rec, _ := a.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, env := a.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestCORSPreflight(t *testing.T) {
	a := newAPI(t, func(c *RouterConfig) { c.AllowedOrigins = []string{"http://localhost:5173"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	m := metrics.New()
	a := newAPI(t, func(c *RouterConfig) { c.Metrics = m })
	s := a.register("a@x.io")
	a.do(http.MethodGet, "/api/projects/0123456789abcdef01234567", s.Token, nil)

	rec, _ := a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `planner_http_requests_total{method="GET",route="/api/projects/{id}",status="404"} 1`)
	assert.NotContains(t, body, "0123456789abcdef01234567")
}

func primitiveID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
