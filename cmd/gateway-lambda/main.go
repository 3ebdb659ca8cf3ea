package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/urfave/cli"

	"github.com/kroma-network/kroma-ccip-gateway/internal/config"
	"github.com/kroma-network/kroma-ccip-gateway/internal/gateway"
	"github.com/kroma-network/kroma-ccip-gateway/internal/transport"
)

// The registry is built once per cold start and reused by every invocation.
func main() {
	app := cli.NewApp()
	app.Name = "kroma-ccip-gateway-lambda"
	app.Version = "0.1.0"
	app.Flags = config.AllFlags()
	app.Action = serve
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(fmt.Errorf("failed to start kroma ccip gateway lambda: %w", err))
	}
}

func serve(ctx *cli.Context) error {
	cfg := config.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	g, err := gateway.New(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	lambda.Start(transport.NewLambdaHandler(g.App, g.Tracker, cfg.HandlerTimeout, logger).Handle)
	return nil
}
