// Package ec2 starts the prover instance on demand and stops it when idle.
package ec2

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"go.uber.org/zap"
)

type Controller struct {
	client     ec2iface.EC2API
	instanceId string
	urlSchema  string
	port       int
	logger     *zap.Logger

	mu        sync.Mutex
	ipAddress string
	running   bool
}

func NewController(ctx context.Context, region, instanceId, urlSchema string, port int, logger *zap.Logger) (*Controller, error) {
	sess, err := session.NewSession(&aws.Config{Region: &region})
	if err != nil {
		return nil, fmt.Errorf("failed to create ec2 session: %w", err)
	}
	return newController(ctx, ec2.New(sess), instanceId, urlSchema, port, logger)
}

func newController(ctx context.Context, client ec2iface.EC2API, instanceId, urlSchema string, port int, logger *zap.Logger) (*Controller, error) {
	c := &Controller{client: client, instanceId: instanceId, urlSchema: urlSchema, port: port, logger: logger}
	if err := c.updateState(ctx); err != nil {
		return nil, fmt.Errorf("failed to update ec2 controller: %w", err)
	}
	return c, nil
}

// URL is the prover JSON-RPC endpoint on the instance's private address.
func (c *Controller) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s://%s:%d", c.urlSchema, c.ipAddress, c.port)
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) updateState(ctx context.Context) error {
	instance, err := c.findInstance(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	state := aws.StringValue(instance.State.Name)
	c.running = state == ec2.InstanceStateNameRunning || state == ec2.InstanceStateNamePending
	if ip := aws.StringValue(instance.PrivateIpAddress); ip != "" {
		c.ipAddress = ip
	}
	return nil
}

func (c *Controller) findInstance(ctx context.Context) (*ec2.Instance, error) {
	output, err := c.client.DescribeInstancesWithContext(ctx, &ec2.DescribeInstancesInput{InstanceIds: c.instanceIds()})
	if err != nil {
		return nil, err
	}
	if len(output.Reservations) == 0 || len(output.Reservations[0].Instances) == 0 {
		return nil, fmt.Errorf("ec2 instance %s not found", c.instanceId)
	}
	return output.Reservations[0].Instances[0], nil
}

func (c *Controller) StartIfNotRunning(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	_, err := c.client.StartInstancesWithContext(ctx, &ec2.StartInstancesInput{InstanceIds: c.instanceIds()})
	if err != nil {
		c.logger.Error("failed to start ec2 instance", zap.String("instance", c.instanceId), zap.Error(err))
		return err
	}
	c.logger.Info("ec2 instance started", zap.String("instance", c.instanceId))
	c.running = true
	return nil
}

func (c *Controller) StopIfRunning(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	_, err := c.client.StopInstancesWithContext(ctx, &ec2.StopInstancesInput{InstanceIds: c.instanceIds()})
	if err != nil {
		c.logger.Error("failed to stop ec2 instance", zap.String("instance", c.instanceId), zap.Error(err))
		return
	}
	c.logger.Info("ec2 instance stopped", zap.String("instance", c.instanceId))
	c.running = false
}

func (c *Controller) instanceIds() []*string { return []*string{aws.String(c.instanceId)} }
