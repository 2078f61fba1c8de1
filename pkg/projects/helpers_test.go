package projects_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/listcache"
	"github.com/platinummonkey/projecthub/pkg/observability"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

type sentMail struct {
	To, Subject, Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) Sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type testEnv struct {
	db      *sql.DB
	store   *projects.PostgresStore
	cache   *listcache.MemoryCache
	sender  *fakeSender
	objects *fakeObjects
	metrics *observability.Metrics
	svc     *projects.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, projects.Migrate(context.Background(), db, projects.DialectSQLite))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		db:      db,
		store:   projects.NewPostgresStore(db),
		cache:   listcache.NewMemoryCache(128, time.Hour),
		sender:  &fakeSender{},
		objects: newFakeObjects(),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}

	svc, err := projects.NewService(projects.Dependencies{
		Store:   env.store,
		Users:   identity.NewPostgresStore(db),
		Cache:   env.cache,
		Sender:  env.sender,
		Objects: env.objects,
		Logger:  logger,
		Metrics: env.metrics,
	}, projects.DefaultServiceConfig())
	require.NoError(t, err)
	env.svc = svc

	return env
}

func (e *testEnv) createUser(t *testing.T, username string) int64 {
	t.Helper()
	var id int64
	err := e.db.QueryRow(
		`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		username, fmt.Sprintf("%s@example.com", username), time.Now().UTC(),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func (e *testEnv) memberRows(t *testing.T, projectID int64) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM members WHERE project_id = $1`, projectID).Scan(&n))
	return n
}

func projectNames(list []*projects.Project) []string {
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}
