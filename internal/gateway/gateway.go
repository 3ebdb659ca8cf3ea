// Package gateway wires the CCIP-Read server, its proof backend and the analytics tracker.
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kroma-network/kroma-ccip-gateway/internal/ccip"
	"github.com/kroma-network/kroma-ccip-gateway/internal/config"
	"github.com/kroma-network/kroma-ccip-gateway/internal/ec2"
	"github.com/kroma-network/kroma-ccip-gateway/internal/proof"
	"github.com/kroma-network/kroma-ccip-gateway/internal/router"
	"github.com/kroma-network/kroma-ccip-gateway/internal/tracker"
)

type Gateway struct {
	App     *router.Router
	Tracker *tracker.Tracker
	Service *proof.Service
}

// Health is the body of the standalone server's health endpoint.
type Health struct {
	Status               string `json:"status"`
	Prover               string `json:"prover"`
	ProverErrorCode      int    `json:"proverErrorCode,omitempty"`
	GeneratingProofCount int    `json:"generatingProofCount"`
}

// New builds the gateway once per process. A registration error means the gateway must not serve.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	disk, err := proof.NewDiskRepository(cfg.ProofBaseDir, cfg.ProofCacheTTL, logger.Named("disk"))
	if err != nil {
		return nil, err
	}
	var host proof.ProverHost = proof.StaticHost(cfg.ProverURL)
	if cfg.AwsProverInstanceId != "" {
		host, err = ec2.NewController(ctx, cfg.AwsRegion, cfg.AwsProverInstanceId, cfg.AwsProverUrlSchema, cfg.AwsProverJsonRpcPort, logger.Named("ec2"))
		if err != nil {
			disk.Close()
			return nil, err
		}
	}
	service := proof.NewService(disk, host, cfg.ProverIdleTimeout, logger.Named("proof"))

	registry := ccip.NewRegistry()
	if err := proof.NewGateway(service).Register(registry); err != nil {
		service.Close()
		return nil, fmt.Errorf("failed to register proof handlers: %w", err)
	}
	server := ccip.NewServer(registry, logger.Named("ccip"))

	var t *tracker.Tracker
	if cfg.TrackerEndpoint != "" {
		t = tracker.New(cfg.TrackerDomain, tracker.Options{
			Endpoint:        cfg.TrackerEndpoint,
			EventsPerSecond: cfg.TrackerRate,
		}, logger.Named("tracker"))
	}
	return &Gateway{
		App:     server.MakeApp(cfg.Prefix, cfg.CORS),
		Tracker: t,
		Service: service,
	}, nil
}

// Health queries the prover without starting it. The gateway itself stays "ok" when the
// prover is unreachable since calls still get answered with their error status.
func (g *Gateway) Health(ctx context.Context) Health {
	health := Health{Status: "ok", GeneratingProofCount: g.Service.InProgress()}
	res, err := g.Service.Health(ctx)
	if err != nil {
		health.Prover = "unavailable"
		if rpcError := proof.NewJsonRpcErrorFromErrorOrNil(err); rpcError != nil {
			health.ProverErrorCode = rpcError.Code
		}
		return health
	}
	health.Prover = res.Status
	return health
}

func (g *Gateway) Close(ctx context.Context) {
	g.Tracker.Flush(ctx)
	g.Service.Close()
}
