package utils

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	for _, k := range []string{"PG_HOST", "PG_PORT", "PG_USER", "PG_PASSWORD", "PG_DB", "PG_SSLMODE"} {
		t.Setenv(k, "")
	}
	assert.Equal(t, "postgres://postgres@localhost:5432/valgkart?sslmode=disable", BuildPostgresDSNFromEnv())

	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "hemmelig")
	assert.Equal(t, "postgres://postgres:hemmelig@db:5432/valgkart?sslmode=disable", BuildPostgresDSNFromEnv())
	assert.True(t, PostgresEnabled())
}

func TestOpenRedisFromEnvDisabled(t *testing.T) {
	t.Setenv("REDIS_ENABLE", "false")
	assert.Nil(t, OpenRedisFromEnv())
	assert.Nil(t, OpenRedis("", ""))
}

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "certs", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "valgkart.local"))
	_, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	// 已存在时不重新生成
	require.NoError(t, EnsureSelfSignedCert(cert, key, "annet"))
}
