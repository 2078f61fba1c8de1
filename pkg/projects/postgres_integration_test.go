//go:build integration

package projects_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/projecthub/pkg/access"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/listcache"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("projecthub_test"),
		postgres.WithUsername("projecthub"),
		postgres.WithPassword("projecthub_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	require.NoError(t, projects.Migrate(ctx, db, projects.DialectPostgres))
	return db
}

func TestPostgres_ConcurrentInviteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupPostgres(t)

	var alice, bob int64
	now := time.Now().UTC()
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		"alice", "alice@example.com", now).Scan(&alice))
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, created_at) VALUES ($1, $2, $3) RETURNING id`,
		"bob", "bob@example.com", now).Scan(&bob))

	svc, err := projects.NewService(projects.Dependencies{
		Store: projects.NewPostgresStore(db),
		Users: identity.NewPostgresStore(db),
		Cache: listcache.NewMemoryCache(64, time.Minute),
	}, projects.DefaultServiceConfig())
	require.NoError(t, err)

	project, err := svc.CreateProject(ctx, alice, "Docs")
	require.NoError(t, err)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		added    int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddMember(ctx, alice, project.ID, bob)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				added++
			} else if errors.Is(err, projects.ErrAlreadyMember) {
				conflict++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	assert.Equal(t, n-1, conflict)

	list, err := svc.ListVisibleProjects(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Docs", list[0].Name)

	assert.ErrorIs(t, svc.RemoveMember(ctx, alice, project.ID, alice), access.ErrCannotRemoveSelf)
}
