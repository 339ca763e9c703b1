package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092")
	t.Setenv("KAFKA_WRITE_TIMEOUT", "3s")

	var cfg Config
	require.NoError(t, LoadEnv(&cfg))
	require.Len(t, cfg.Brokers, 2)
	require.Equal(t, "stockhold", cfg.ClientID)
	require.Equal(t, 3*time.Second, cfg.WriteTimeout)
	require.NoError(t, cfg.Validate())
}

func TestWithDefaults(t *testing.T) {
	require.Equal(t, []string{"localhost:19092"}, Config{}.WithDefaults("local").Brokers)
	require.Equal(t, []string{"kafka:9092"}, Config{}.WithDefaults("docker").Brokers)
	require.Equal(t, []string{"x:1"}, Config{Brokers: []string{"x:1"}}.WithDefaults("docker").Brokers)
}

func TestValidate(t *testing.T) {
	err := Config{WriteTimeout: time.Second}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "KAFKA_BROKERS")
}
