package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/projecthub/pkg/api"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/listcache"
	"github.com/platinummonkey/projecthub/pkg/middleware"
	"github.com/platinummonkey/projecthub/pkg/observability"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

type recordingSender struct {
	mu  sync.Mutex
	to  []string
	err error
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	return nil
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("missing object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type apiEnv struct {
	db      *sql.DB
	server  *httptest.Server
	sender  *recordingSender
	objects *memoryObjects
	metrics *observability.Metrics
	ids     map[string]int64
	tokens  map[string]string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, projects.Migrate(ctx, db, projects.DialectSQLite))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &apiEnv{
		db:      db,
		sender:  &recordingSender{},
		objects: &memoryObjects{objects: make(map[string][]byte)},
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		ids:     make(map[string]int64),
		tokens:  make(map[string]string),
	}

	svc, err := projects.NewService(projects.Dependencies{
		Store:   projects.NewPostgresStore(db),
		Users:   identity.NewPostgresStore(db),
		Cache:   listcache.NewMemoryCache(64, time.Hour),
		Sender:  env.sender,
		Objects: env.objects,
		Logger:  logger,
		Metrics: env.metrics,
	}, projects.DefaultServiceConfig())
	require.NoError(t, err)

	tokens := identity.NewTokenStore(db)
	for _, name := range []string{"alice", "bob", "carol"} {
		var id int64
		require.NoError(t, db.QueryRow(
			`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
			name, name+"@example.com", time.Now().UTC()).Scan(&id))
		token, err := tokens.CreateToken(ctx, id, "test")
		require.NoError(t, err)
		env.ids[name] = id
		env.tokens[name] = token
	}

	handler := api.NewRouter(api.NewHandlers(svc, logger), api.RouterConfig{
		Auth:         middleware.NewAuthMiddleware(tokens, logger),
		Metrics:      env.metrics,
		Logger:       logger,
		MaxBodyBytes: 1 << 20,
	})
	env.server = httptest.NewServer(handler)
	t.Cleanup(env.server.Close)

	return env
}

// do sends a JSON request as user (anonymous when empty)
func (e *apiEnv) do(t *testing.T, user, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, user, req)
}

func (e *apiEnv) upload(t *testing.T, user string, projectID int64, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project", fmt.Sprint(projectID)))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest("POST", e.server.URL+"/documents", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(t, user, req)
}

func (e *apiEnv) send(t *testing.T, user string, req *http.Request) *http.Response {
	t.Helper()
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[user])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *apiEnv) createProject(t *testing.T, user, name string) int64 {
	t.Helper()
	resp := e.do(t, user, "POST", "/projects", map[string]string{"project_name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p projects.Project
	decode(t, resp, &p)
	return p.ID
}

func decode(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func detail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, resp, &body)
	return body.Detail
}
