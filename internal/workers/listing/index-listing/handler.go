package indexlisting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"give4need/internal/common/camunda"
	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "index-listing"

type ItemGetter interface {
	Get(ctx context.Context, id string) (*models.Item, error)
}

type Indexer interface {
	Put(ctx context.Context, item *models.Item) error
	Remove(ctx context.Context, itemID string) error
}

type Handler struct {
	config       *Config
	items        ItemGetter
	index        Indexer
	errorHandler *errors.ErrorHandler
	retrier      *camunda.Retrier
	logger       logger.Logger
}

func NewHandler(cfg *Config, items ItemGetter, index Indexer, log logger.Logger) *Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		items:        items,
		index:        index,
		errorHandler: errors.NewErrorHandler(l),
		retrier:      camunda.NewRetrier(cfg.Retry),
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
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
			return
		}
	}

	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	if input.ItemID == "" {
		return nil, errors.NewParseError(fmt.Errorf("itemId is required"))
	}
	switch input.Action {
	case "":
		input.Action = ActionIndex
	case ActionIndex, ActionDelete:
	default:
		return nil, errors.NewParseError(fmt.Errorf("unknown action %q", input.Action))
	}
	return &input, nil
}

// Execute syncs one listing into the search index. A listing that no longer exists is removed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Action == ActionDelete {
		if err := h.index.Remove(ctx, input.ItemID); err != nil {
			return nil, err
		}
		return &Output{ItemID: input.ItemID, Action: ActionDelete}, nil
	}

	item, err := h.items.Get(ctx, input.ItemID)
	if errors.HasCode(err, errors.ErrCodeItemNotFound) {
		h.logger.Info("listing gone, removing from index", map[string]interface{}{"itemId": input.ItemID})
		if err := h.index.Remove(ctx, input.ItemID); err != nil {
			return nil, err
		}
		return &Output{ItemID: input.ItemID, Action: ActionDelete}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := h.index.Put(ctx, item); err != nil {
		return nil, err
	}
	return &Output{ItemID: item.ID, Action: ActionIndex, Indexed: true}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, h.retrier, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}
