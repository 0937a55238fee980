package worker

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/domain"
)

// Client enqueues tasks for the worker
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates a client on the worker's Redis
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt(cfg)),
		queue:  cfg.Worker.QueueLow,
	}
}

// EnqueueExport enqueues an execution export task
func (c *Client) EnqueueExport(ctx context.Context, id domain.ExecutionID) error {
	task, err := NewExecutionExportTask(&ExecutionExportPayload{ExecutionID: id})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.client.Close()
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}
