package utils

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"dvhc-api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "keys", "server.key")

	require.NoError(t, EnsureSelfSignedCert(cert, key, "dvhc.local"))
	pair, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Certificate)

	// 已存在时不重新生成
	require.NoError(t, EnsureSelfSignedCert(cert, key, "other"))
	again, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)
	assert.Equal(t, pair.Certificate[0], again.Certificate[0])
}

func TestOpenRedisDisabled(t *testing.T) {
	assert.Nil(t, OpenRedis(config.RedisOptions{Enabled: false, Host: "127.0.0.1", Port: "6379"}))
	assert.Nil(t, OpenRedis(config.RedisOptions{Enabled: true}))

	rc := OpenRedis(config.RedisOptions{Enabled: true, Host: "127.0.0.1", Port: "6390", DB: -1})
	require.NotNil(t, rc)
	defer rc.Close()
	assert.Equal(t, "127.0.0.1:6390", rc.Options().Addr)
	assert.Equal(t, 0, rc.Options().DB)
}

func TestOpenPostgres(t *testing.T) {
	db, err := OpenPostgres(config.PostgresOptions{Host: "localhost", Port: "5432", User: "u", DB: "d", SSLMode: "disable"})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 50, db.Stats().MaxOpenConnections)
}
