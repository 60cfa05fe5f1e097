// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"give4need/internal/common/config"
	"give4need/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobWorkerOpener is the part of zbc.Client needed to open job workers.
type JobWorkerOpener interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

// StartWorker opens a job worker for taskType. It returns nil when the worker is disabled.
func StartWorker(
	client JobWorkerOpener,
	taskType string,
	wcfg config.WorkerConfig,
	handler func(worker.JobClient, entities.Job),
	log logger.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}

// CompleteJob completes job with vars, resending through r on transient gateway errors.
func CompleteJob(ctx context.Context, r *Retrier, client worker.JobClient, job entities.Job, vars interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(vars)
	if err != nil {
		return fmt.Errorf("build complete job command: %w", err)
	}
	return r.Do(ctx, "complete-job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}

// RetryConfigFor turns a worker's max_retries into the retry policy for its complete-job commands.
func RetryConfigFor(wcfg config.WorkerConfig) *RetryConfig {
	return &RetryConfig{
		MaxRetries: wcfg.MaxRetries,
		BaseDelay:  DefaultRetryConfig.BaseDelay,
		MaxDelay:   DefaultRetryConfig.MaxDelay,
	}
}
