package recommendnearbyitems

import (
	"time"

	"give4need/internal/common/camunda"
	"give4need/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Retry   *camunda.RetryConfig
}

func DefaultConfig() *Config {
	return &Config{Timeout: 15 * time.Second, Retry: camunda.DefaultRetryConfig}
}

// FromWorkerConfig reads the "recommend-nearby-items" entry of workers.
func FromWorkerConfig(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Retry = camunda.RetryConfigFor(wcfg)
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return cfg
}
