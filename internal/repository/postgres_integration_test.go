//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"linkly-api/internal/database"
)

const postgresImage = "postgres:16-alpine"

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "linkly",
			"POSTGRES_PASSWORD": "linkly",
			"POSTGRES_DB":       "linkly",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		container.Terminate(context.Background()) //nolint:errcheck
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://linkly:linkly@%s:%s/linkly?sslmode=disable", host, port.Port())

	db, err := database.NewConnection(ctx, dsn, 10*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.RunMigrations(ctx, db))
	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	users := NewUserRepository(db, 5*time.Second)
	urls := NewURLRepository(db, 5*time.Second)

	ann, err := users.Create(ctx, "Ann", "ann@x.com", "hash")
	require.NoError(t, err)

	_, err = users.Create(ctx, "Ann", "ann@x.com", "hash")
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := users.FindByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	t.Run("create deduplicates by long url", func(t *testing.T) {
		first, created, err := urls.Create(ctx, newLink("aaaaaaa", "https://example.com/a", &ann.ID))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Zero(t, first.Clicks)
		require.NotNil(t, first.Owner)
		assert.Equal(t, ann.ID, *first.Owner)

		again, created, err := urls.Create(ctx, newLink("bbbbbbb", "https://example.com/a", nil))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, "aaaaaaa", again.Code)
	})

	t.Run("code collision is reported", func(t *testing.T) {
		_, _, err := urls.Create(ctx, newLink("aaaaaaa", "https://example.com/other", nil))
		assert.ErrorIs(t, err, ErrCodeConflict)
	})

	t.Run("unknown owner is reported", func(t *testing.T) {
		ghost := "00000000-0000-4000-8000-000000000000"
		_, _, err := urls.Create(ctx, newLink("ddddddd", "https://example.com/ghost", &ghost))
		assert.ErrorIs(t, err, ErrUnknownOwner)

		notUUID := "memory-user"
		_, _, err = urls.Create(ctx, newLink("eeeeeee", "https://example.com/ghost", &notUUID))
		assert.ErrorIs(t, err, ErrUnknownOwner)

		_, err = urls.FindByLongURL(ctx, "https://example.com/ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent visits are not lost", func(t *testing.T) {
		const visits = 50
		var wg sync.WaitGroup
		for i := 0; i < visits; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := urls.IncrementClicks(ctx, "aaaaaaa")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		link, err := urls.FindByCode(ctx, "aaaaaaa")
		require.NoError(t, err)
		assert.EqualValues(t, visits, link.Clicks)

		_, err = urls.IncrementClicks(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by owner", func(t *testing.T) {
		_, _, err := urls.Create(ctx, newLink("ccccccc", "https://example.com/c", &ann.ID))
		require.NoError(t, err)

		links, err := urls.ListByOwner(ctx, ann.ID)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "aaaaaaa", links[0].Code)
		assert.Equal(t, "ccccccc", links[1].Code)

		links, err = urls.ListByOwner(ctx, "not-a-uuid")
		require.NoError(t, err)
		assert.Empty(t, links)
	})
}
