package config

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQLiteDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "dev")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "crowdsource.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.VerificationTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.True(t, cfg.IsDev())
}

func TestLoadMySQL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "ideas")
	t.Setenv("SESSION_TTL_DAYS", "3")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")

	cfg := Load()
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 3*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitMQURL)
	assert.False(t, cfg.IsDev())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	assert.False(t, envBool("X_BOOL", true))
	assert.Equal(t, 5, envInt("X_INT", 5))
	assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
	assert.Equal(t, "d", envStr("X_UNSET_FOR_TEST", "d"))
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestNewRedisClient(t *testing.T) {
	log, hook := test.NewNullLogger()
	m := miniredis.RunT(t)

	t.Setenv("REDIS_ADDR", m.Addr())
	client := NewRedisClient(LoadRedisConfig(), log)
	require.NotNil(t, client)
	_ = client.Close()

	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: false}, log))
	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}, log))
	assert.NotEmpty(t, hook.Entries)
}
