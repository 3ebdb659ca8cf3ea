package config

import (
	"time"

	"github.com/urfave/cli"
)

var (
	HTTPAddr = cli.StringFlag{
		Name:   "http.addr",
		Usage:  "HTTP server listening address",
		Value:  "0.0.0.0",
		EnvVar: "HTTP_ADDR",
	}
	HTTPPort = cli.IntFlag{
		Name:   "http.port",
		Usage:  "HTTP server listening port",
		Value:  8080,
		EnvVar: "HTTP_PORT",
	}
	GatewayPrefix = cli.StringFlag{
		Name:   "gateway.prefix",
		Usage:  "Path prefix the gateway routes are served under",
		Value:  "/",
		EnvVar: "GATEWAY_PREFIX",
	}
	GatewayCORS = cli.BoolTFlag{
		Name:   "gateway.cors",
		Usage:  "Answer CORS preflight requests and add CORS headers",
		EnvVar: "GATEWAY_CORS",
	}
	GatewayHandlerTimeout = cli.DurationFlag{
		Name:   "gateway.handler-timeout",
		Usage:  "Upper bound on the time spent answering a single request",
		Value:  25 * time.Second,
		EnvVar: "GATEWAY_HANDLER_TIMEOUT",
	}
	ProverURL = cli.StringFlag{
		Name:   "prover.url",
		Usage:  "JSON-RPC endpoint of an always-on prover. Ignored when aws.prover-instance-id is set",
		Value:  "http://localhost:3000",
		EnvVar: "PROVER_URL",
	}
	ProverIdleTimeout = cli.DurationFlag{
		Name:   "prover.idle-timeout",
		Usage:  "Stop an on-demand prover instance after this long without requests",
		Value:  30 * time.Minute,
		EnvVar: "PROVER_IDLE_TIMEOUT",
	}
	ProofBaseDir = cli.StringFlag{
		Name:   "proof.base-dir",
		Usage:  "A directory to temporarily store the generated proof",
		Value:  "./proof",
		EnvVar: "PROOF_BASE_DIR",
	}
	ProofCacheTTL = cli.DurationFlag{
		Name:   "proof.cache-ttl",
		Usage:  "How long a generated proof is served from the cache",
		Value:  5 * time.Minute,
		EnvVar: "PROOF_CACHE_TTL",
	}
	AwsRegion = cli.StringFlag{
		Name:   "aws.region",
		Value:  "ap-northeast-2",
		EnvVar: "AWS_REGION",
	}
	AwsProverInstanceId = cli.StringFlag{
		Name:   "aws.prover-instance-id",
		Usage:  "EC2 instance ID running the prover. Started on demand when set",
		EnvVar: "AWS_PROVER_INSTANCE_ID",
	}
	AwsProverUrlSchema = cli.StringFlag{
		Name:   "aws.prover-url-schema",
		Value:  "http",
		EnvVar: "AWS_PROVER_URL_SCHEMA",
	}
	AwsProverJsonRpcPort = cli.IntFlag{
		Name:   "aws.prover-jsonrpc-port",
		Value:  3000,
		EnvVar: "AWS_PROVER_JSONRPC_PORT",
	}
	TrackerDomain = cli.StringFlag{
		Name:   "tracker.domain",
		Usage:  "Domain reported to the analytics endpoint",
		EnvVar: "GATEWAY_DOMAIN",
	}
	TrackerEndpoint = cli.StringFlag{
		Name:   "tracker.endpoint",
		Usage:  "Analytics event endpoint. Tracking is disabled when empty",
		EnvVar: "ENDPOINT_URL",
	}
	TrackerRate = cli.Float64Flag{
		Name:   "tracker.rate",
		Usage:  "Maximum analytics events per second, 0 for unlimited",
		Value:  50,
		EnvVar: "TRACKER_RATE",
	}
	LogLevel = cli.StringFlag{
		Name:   "log.level",
		Usage:  "Log level: debug, info, warn, error",
		Value:  "info",
		EnvVar: "LOG_LEVEL",
	}
)

func AllFlags() []cli.Flag {
	return []cli.Flag{
		HTTPAddr,
		HTTPPort,
		GatewayPrefix,
		GatewayCORS,
		GatewayHandlerTimeout,
		ProverURL,
		ProverIdleTimeout,
		ProofBaseDir,
		ProofCacheTTL,
		AwsRegion,
		AwsProverInstanceId,
		AwsProverUrlSchema,
		AwsProverJsonRpcPort,
		TrackerDomain,
		TrackerEndpoint,
		TrackerRate,
		LogLevel,
	}
}
