package store

import (
	"testing"

	"github.com/nats-io/nkeys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-resolver/config"
	"macro-resolver/internal/logger"
)

func TestBuildNATSOptions(t *testing.T) {
	log := logger.NewNopLogger()

	t.Run("token", func(t *testing.T) {
		opts, err := buildNATSOptions(&config.NATSConfig{Token: "s3cret"}, log, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, opts)
	})

	t.Run("valid nkey seed", func(t *testing.T) {
		kp, err := nkeys.CreateUser()
		require.NoError(t, err)
		seed, err := kp.Seed()
		require.NoError(t, err)

		_, err = buildNATSOptions(&config.NATSConfig{NKey: string(seed)}, log, nil)
		assert.NoError(t, err)
	})

	t.Run("invalid nkey seed", func(t *testing.T) {
		_, err := buildNATSOptions(&config.NATSConfig{NKey: "SUNOTASEED"}, log, nil)
		assert.Error(t, err)
	})

	t.Run("missing client certificate", func(t *testing.T) {
		cfg := &config.NATSConfig{}
		cfg.TLS.Enable = true
		cfg.TLS.CertFile = "testdata/missing.crt"
		cfg.TLS.KeyFile = "testdata/missing.key"
		_, err := buildNATSOptions(cfg, log, nil)
		assert.Error(t, err)
	})
}
