package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, ModeServer, cfg.OpMode)
	assert.Equal(t, int32(10), cfg.PostgresMaxConns)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, LimiterMemory, cfg.RateLimitBackend)
	assert.True(t, cfg.ExposeInternalErrors)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("POSTGRES_MAX_CONNS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("EXPOSE_INTERNAL_ERRORS", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, int32(4), cfg.PostgresMaxConns)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, LimiterRedis, cfg.RateLimitBackend)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.ExposeInternalErrors)
}

func TestLoadInvalidValues(t *testing.T) {
	testCases := map[string]struct {
		key   string
		value string
	}{
		"unknown backend":    {key: "STORAGE_BACKEND", value: "sqlite"},
		"unknown limiter":    {key: "RATE_LIMIT_BACKEND", value: "memcached"},
		"bad max conns":      {key: "POSTGRES_MAX_CONNS", value: "lots"},
		"zero rate max":      {key: "RATE_LIMIT_MAX", value: "0"},
		"bad window":         {key: "RATE_LIMIT_WINDOW", value: "15"},
		"negative shutdown":  {key: "SHUTDOWN_TIMEOUT", value: "-1s"},
		"bad metrics toggle": {key: "METRICS_ENABLED", value: "maybe"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tc.key, tc.value)

			_, err := Load("")

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := "# local settings\nSERVER_ADDR=\":7070\"\nSTORAGE_BACKEND=mongo\nMONGO_DATABASE=from_file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644))

	// the real environment wins over the file
	t.Setenv("MONGO_DATABASE", "from_env")

	// godotenv writes straight to the process environment
	t.Cleanup(func() {
		os.Unsetenv("SERVER_ADDR")
		os.Unsetenv("STORAGE_BACKEND")
	})

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.Equal(t, BackendMongo, cfg.Backend)
	assert.Equal(t, "from_env", cfg.MongoDatabase)
}

func TestLoadExplicitEnvFileMustExist(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("missing.env")

	assert.Error(t, err)
}

func TestParseBackend(t *testing.T) {
	testCases := map[string]struct {
		in      string
		want    Backend
		wantErr bool
	}{
		"memory":   {in: "memory", want: BackendMemory},
		"pg alias": {in: "PG", want: BackendPostgres},
		"mongodb":  {in: " mongodb ", want: BackendMongo},
		"unknown":  {in: "redis", wantErr: true},
		"empty":    {in: "", wantErr: true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseBackend(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
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
