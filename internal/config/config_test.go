package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "docshare_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("BACKEND_CORS_ORIGINS", "http://localhost:3000, https://docs.example.com")
	t.Setenv("PAGINATION_MAX_PAGE_SIZE", "50")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 30*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, []string{"http://localhost:3000", "https://docs.example.com"}, cfg.Server.CORSOrigins)
	require.Equal(t, 10, cfg.Pagination.DefaultPageSize)
	require.Equal(t, 50, cfg.Pagination.MaxPageSize)
	require.Empty(t, cfg.Archive.Endpoint)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MINIO_ENDPOINT=minio:9000\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MINIO_ENDPOINT") })
	t.Setenv("JWT_SECRET", "s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "minio:9000", cfg.Archive.Endpoint)
}

func TestLoadConfig_SecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SERVER_ENVIRONMENT", "production")
	_, err := LoadConfig("")
	require.Error(t, err)

	t.Setenv("SERVER_ENVIRONMENT", "development")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadConfig_InvalidPagination(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PAGINATION_DEFAULT_PAGE_SIZE", "200")
	t.Setenv("PAGINATION_MAX_PAGE_SIZE", "100")
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestKeycloakIssuer(t *testing.T) {
	require.Equal(t, "https://kc/realms/docs", KeycloakConfig{URL: "https://kc/", Realm: "docs"}.Issuer())
	require.Equal(t, "https://kc/realms/docs", KeycloakConfig{URL: "https://kc/realms/docs"}.Issuer())
}
