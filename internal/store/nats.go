// file: internal/store/nats.go

package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"

	"macro-resolver/config"
	"macro-resolver/internal/logger"
	"macro-resolver/internal/metrics"
)

// Connection holds the NATS connection and the metadata bucket
type Connection struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// Connect establishes the NATS connection and opens the metadata bucket.
// The bucket must already exist; the resolver never creates it.
func Connect(ctx context.Context, cfg *config.NATSConfig, bucket string, log *logger.Logger, m *metrics.Metrics) (*Connection, error) {
	log.Info("establishing NATS connection", "urls", cfg.URLs, "bucket", bucket)

	opts, err := buildNATSOptions(cfg, log, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build NATS options: %w", err)
	}

	nc, err := nats.Connect(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	m.SetNATSConnectionStatus(true)

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to access KV bucket '%s': %w", bucket, err)
	}

	log.Info("NATS connection established successfully", "bucket", bucket)
	return &Connection{nc: nc, js: js, kv: kv, logger: log, metrics: m}, nil
}

// KeyValue returns the metadata bucket
func (c *Connection) KeyValue() jetstream.KeyValue {
	return c.kv
}

// Close drains the connection
func (c *Connection) Close() error {
	if c == nil || c.nc == nil {
		return nil
	}
	c.logger.Info("closing NATS connection")
	err := c.nc.Drain()
	c.metrics.SetNATSConnectionStatus(false)
	if err != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// buildNATSOptions creates NATS connection options with authentication and TLS.
// Authentication methods are mutually exclusive: creds, nkey, token, user/password.
func buildNATSOptions(cfg *config.NATSConfig, log *logger.Logger, m *metrics.Metrics) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("macro-resolver"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			m.SetNATSConnectionStatus(false)
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			m.SetNATSConnectionStatus(true)
			m.IncNATSReconnects()
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	switch {
	case cfg.CredsFile != "":
		log.Info("using NATS JWT authentication with creds file", "credsFile", cfg.CredsFile)
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	case cfg.NKey != "":
		log.Info("using NATS NKey authentication")
		opt, err := nkeyOption(cfg.NKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	case cfg.Token != "":
		log.Info("using NATS token authentication")
		opts = append(opts, nats.Token(cfg.Token))
	case cfg.Username != "":
		log.Info("using NATS username/password authentication", "username", cfg.Username)
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	if cfg.TLS.Enable {
		tlsConfig, err := createTLSConfig(cfg, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	return opts, nil
}

// nkeyOption signs the server nonce with the configured user seed
func nkeyOption(seed string) (nats.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
	}
	return nats.Nkey(pub, kp.Sign), nil
}

func createTLSConfig(cfg *config.NATSConfig, log *logger.Logger) (*tls.Config, error) {
	log.Info("enabling TLS for NATS connection", "insecure", cfg.TLS.Insecure)

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.TLS.Insecure,
	}

	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load NATS TLS client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
		log.Info("loaded NATS TLS client certificate", "certFile", cfg.TLS.CertFile)
	}

	if cfg.TLS.CAFile != "" {
		caCert, err := os.ReadFile(cfg.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read NATS CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse NATS CA certificate")
		}
		tlsConfig.RootCAs = pool
		log.Info("loaded NATS TLS CA certificate", "caFile", cfg.TLS.CAFile)
	}

	return tlsConfig, nil
}
