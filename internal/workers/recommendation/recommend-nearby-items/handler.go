package recommendnearbyitems

import (
	"context"
	"encoding/json"
	"time"

	"give4need/internal/common/auth"
	"give4need/internal/common/camunda"
	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/common/observability"
	"give4need/internal/geolocation"
	"give4need/internal/nearby"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "recommend-nearby-items"

type Handler struct {
	config       *Config
	nearby       *nearby.Service
	errorHandler *errors.ErrorHandler
	retrier      *camunda.Retrier
	obs          *observability.Observability
	logger       logger.Logger
}

func NewHandler(cfg *Config, svc *nearby.Service, obs *observability.Observability, log logger.Logger) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		nearby:       svc,
		errorHandler: errors.NewErrorHandler(l),
		retrier:      camunda.NewRetrier(cfg.Retry),
		obs:          obs,
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
}

// Execute builds the nearby view for the reported position. Geolocation and fetch
// failures come back as notices in the output, not as job failures.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var user *auth.User
	if input.UserID != "" {
		user = &auth.User{ID: input.UserID}
	}

	view := h.nearby.Build(ctx, nearby.Request{
		Auth: auth.NewHub(user),
		Position: geolocation.Reported{
			Lat:  input.Latitude,
			Lng:  input.Longitude,
			Code: input.GeolocationErrorCode,
		},
	})

	return &Output{
		NearbyMap:          view.Map,
		NearbyItems:        view.Items,
		NearbyItemCount:    len(view.Items),
		NearbyEmptyMessage: view.EmptyMessage,
		NearbyNotices:      view.Notices,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, h.retrier, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":    job.Key,
		"itemCount": output.NearbyItemCount,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
