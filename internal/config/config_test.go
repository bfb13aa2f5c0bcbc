package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, 5, cfg.Sequence.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Sequence.RetryBackoff())
	assert.Equal(t, "tickets:changes", cfg.Redis.EventsChannel)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadValidatesBackend(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "cassandra"}},
		{name: "postgres without dsn", env: map[string]string{"STORE_BACKEND": "postgres", "POSTGRES_DSN": ""}},
		{name: "mongo without uri", env: map[string]string{"STORE_BACKEND": "mongo", "MONGO_URI": ""}},
		{name: "zero retries", env: map[string]string{"STORE_BACKEND": "memory", "SEQUENCE_MAX_RETRIES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpersFallBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_BOOL", "maybe")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
	assert.Equal(t, "x", getEnv("UNSET_FOR_TEST", "x"))
}
