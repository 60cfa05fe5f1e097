// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"give4need/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Client owns the Zeebe gateway connection used by the job workers.
type Client struct {
	client   zbc.Client
	retrier  *Retrier
	timeout  time.Duration
	topology func(ctx context.Context) error
}

// NewClient connects to cfg.BrokerAddress over plaintext and checks the gateway with a topology
// request bounded by cfg.Timeout.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	connectTimeout := millis(cfg.Timeout, defaultConnectTimeout)

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{
		client: zeebeClient,
		retrier: NewRetrier(&RetryConfig{
			MaxRetries:     DefaultRetryConfig.MaxRetries,
			BaseDelay:      DefaultRetryConfig.BaseDelay,
			MaxDelay:       DefaultRetryConfig.MaxDelay,
			AttemptTimeout: millis(cfg.RequestTimeout, defaultRequestTimeout),
		}),
		timeout: connectTimeout,
		topology: func(ctx context.Context) error {
			_, err := zeebeClient.NewTopologyCommand().Send(ctx)
			return err
		},
	}

	if err := c.Ping(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for job polling.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Retrier is the retry policy for commands sent through this gateway.
func (c *Client) Retrier() *Retrier {
	return c.retrier
}

// Ping sends a topology request. It backs the "zeebe" readiness check.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.topology(ctx); err != nil {
		return mapCommandError(fmt.Errorf("topology: %w", err), "ping", 0)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
