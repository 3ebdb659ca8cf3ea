// Package config reads the gateway configuration from command line flags and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	HTTPAddr string
	HTTPPort int

	Prefix         string
	CORS           bool
	HandlerTimeout time.Duration

	ProverURL         string
	ProverIdleTimeout time.Duration
	ProofBaseDir      string
	ProofCacheTTL     time.Duration

	AwsRegion            string
	AwsProverInstanceId  string
	AwsProverUrlSchema   string
	AwsProverJsonRpcPort int

	TrackerDomain   string
	TrackerEndpoint string
	TrackerRate     float64

	LogLevel string
}

func FromContext(ctx *cli.Context) *Config {
	return &Config{
		HTTPAddr:             ctx.String(HTTPAddr.Name),
		HTTPPort:             ctx.Int(HTTPPort.Name),
		Prefix:               ctx.String(GatewayPrefix.Name),
		CORS:                 ctx.BoolT(GatewayCORS.Name),
		HandlerTimeout:       ctx.Duration(GatewayHandlerTimeout.Name),
		ProverURL:            ctx.String(ProverURL.Name),
		ProverIdleTimeout:    ctx.Duration(ProverIdleTimeout.Name),
		ProofBaseDir:         ctx.String(ProofBaseDir.Name),
		ProofCacheTTL:        ctx.Duration(ProofCacheTTL.Name),
		AwsRegion:            ctx.String(AwsRegion.Name),
		AwsProverInstanceId:  ctx.String(AwsProverInstanceId.Name),
		AwsProverUrlSchema:   ctx.String(AwsProverUrlSchema.Name),
		AwsProverJsonRpcPort: ctx.Int(AwsProverJsonRpcPort.Name),
		TrackerDomain:        ctx.String(TrackerDomain.Name),
		TrackerEndpoint:      ctx.String(TrackerEndpoint.Name),
		TrackerRate:          ctx.Float64(TrackerRate.Name),
		LogLevel:             ctx.String(LogLevel.Name),
	}
}

func (c *Config) Validate() error {
	if c.HandlerTimeout < 0 {
		return errors.New("gateway.handler-timeout must not be negative")
	}
	if c.ProofCacheTTL <= 0 {
		return errors.New("proof.cache-ttl must be positive")
	}
	if c.AwsProverInstanceId == "" && c.ProverURL == "" {
		return errors.New("either prover.url or aws.prover-instance-id is required")
	}
	if c.TrackerEndpoint != "" && c.TrackerDomain == "" {
		return errors.New("tracker.domain is required when tracker.endpoint is set")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// WriteTimeout is the standalone server's write timeout. It leaves headroom above the
// handler timeout so timed out calls still get a response, and is disabled along with it.
func (c *Config) WriteTimeout() time.Duration {
	if c.HandlerTimeout == 0 {
		return 0
	}
	return c.HandlerTimeout + 5*time.Second
}

// NewLogger builds the production JSON logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
