package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"crudserver/internal/config"
	"crudserver/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeWith(t *testing.T, data string) *os.File {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = w.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return r
}

func TestBootstrapPipeMode(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_BACKEND", "postgres")

	cfg, seed, err := bootstrap("", pipeWith(t, `{"users":[{"name":"Ana","email":"ana@x.com","age":30}]}`))
	require.NoError(t, err)

	assert.Equal(t, config.ModePipe, cfg.OpMode)
	assert.Equal(t, config.BackendMemory, cfg.Backend)
	assert.Equal(t, []domain.NewUser{{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)}}, seed)
}

func TestBootstrapEmptyPipeIsServerMode(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, seed, err := bootstrap("", pipeWith(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.ModeServer, cfg.OpMode)
	assert.Nil(t, seed)
}

func TestBootstrapBadPipe(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := bootstrap("", pipeWith(t, `{"users": nope}`))

	assert.Error(t, err)
}

func TestBuildMemoryRepositoryWithDataFile(t *testing.T) {
	cfg := config.Default()
	cfg.DataFile = filepath.Join(t.TempDir(), "db.json")
	ctx := context.Background()

	repo, err := buildRepository(ctx, cfg, []domain.NewUser{{Name: "Ana", Email: "ana@x.com", Age: domain.IntPtr(30)}}, nil)
	require.NoError(t, err)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	assert.FileExists(t, cfg.DataFile)
}

func TestBuildLimiter(t *testing.T) {
	cfg := config.Default()

	limiter, closeFn := buildLimiter(context.Background(), cfg)
	defer closeFn()
	assert.NotNil(t, limiter)

	cfg.RateLimitEnabled = false
	limiter, closeFn = buildLimiter(context.Background(), cfg)
	defer closeFn()
	assert.Nil(t, limiter)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}
